// Package prometheus exposes sessiongate metrics through client_golang.
//
// [NewExporter] wraps a [sessiongate.Engine] in a prometheus.Collector.
// Counter names are sessiongate_*_total; the single histogram is
// sessiongate_validate_latency_seconds. [Exporter.Handler] serves a private
// registry, so nothing is registered globally.
package prometheus
