package internaldefs

import (
	"github.com/skillx/sessiongate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricLoginSuccess, Name: "sessiongate_login_success_total", Help: "Logins that produced a session."},
	{ID: sessiongate.MetricLoginFailure, Name: "sessiongate_login_failure_total", Help: "Failed login attempts."},
	{ID: sessiongate.MetricLoginRateLimited, Name: "sessiongate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: sessiongate.MetricIssuerUnavailable, Name: "sessiongate_issuer_unavailable_total", Help: "Token requests that could not reach the issuer."},
	{ID: sessiongate.MetricSessionCreated, Name: "sessiongate_session_created_total", Help: "Session keys written to Redis."},
	{ID: sessiongate.MetricSessionCreateFailed, Name: "sessiongate_session_create_failed_total", Help: "Session writes that failed after a token was issued."},
	{ID: sessiongate.MetricValidateSuccess, Name: "sessiongate_validate_success_total", Help: "Validations that returned valid."},
	{ID: sessiongate.MetricValidateFailure, Name: "sessiongate_validate_failure_total", Help: "Validations that returned invalid."},
	{ID: sessiongate.MetricValidateFailClosed, Name: "sessiongate_validate_fail_closed_total", Help: "Invalid validations caused by a backend error."},
	{ID: sessiongate.MetricLogout, Name: "sessiongate_logout_total", Help: "Logout operations."},
	{ID: sessiongate.MetricRegisterSuccess, Name: "sessiongate_register_success_total", Help: "Created users."},
	{ID: sessiongate.MetricRegisterDuplicate, Name: "sessiongate_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: sessiongate.MetricRegisterFailure, Name: "sessiongate_register_failure_total", Help: "Other failed registrations."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricValidateLatency, Name: "sessiongate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "sessiongate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the bucket bounds in seconds, excluding +Inf.
// They match the engine's millisecond buckets.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters
// that flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
