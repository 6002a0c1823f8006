// Package otel binds sessiongate counters to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter and
// an Int64ObservableGauge per histogram bucket. Callers own the
// MeterProvider.
package otel
