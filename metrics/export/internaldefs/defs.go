package internaldefs

import (
	"github.com/sessiongate/sessiongate"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// AuditDropped names the dispatcher drop counter, which is not a MetricID.
var AuditDropped = CounterDef{
	Name: "sessiongate_audit_dropped_total",
	Help: "Audit events dropped under dispatcher backpressure.",
}

var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricLoginSuccess, Name: "sessiongate_login_success_total", Help: "Successful logins."},
	{ID: sessiongate.MetricLoginFailure, Name: "sessiongate_login_failure_total", Help: "Rejected logins."},
	{ID: sessiongate.MetricVerifySuccess, Name: "sessiongate_verify_success_total", Help: "Tokens accepted by Verify."},
	{ID: sessiongate.MetricVerifyExpired, Name: "sessiongate_verify_expired_total", Help: "Tokens rejected as expired."},
	{ID: sessiongate.MetricVerifyRevoked, Name: "sessiongate_verify_revoked_total", Help: "Tokens rejected as revoked."},
	{ID: sessiongate.MetricVerifyMalformed, Name: "sessiongate_verify_malformed_total", Help: "Tokens rejected as malformed."},
	{ID: sessiongate.MetricVerifyInvalid, Name: "sessiongate_verify_invalid_total", Help: "Tokens rejected for signature or internal failures."},
	{ID: sessiongate.MetricRevokeSuccess, Name: "sessiongate_revoke_success_total", Help: "Successful revocations."},
	{ID: sessiongate.MetricRevokeFailure, Name: "sessiongate_revoke_failure_total", Help: "Rejected or failed revocations."},
	{ID: sessiongate.MetricRevocationsSwept, Name: "sessiongate_revocations_swept_total", Help: "Expired revocation entries removed by sweeps."},
	{ID: sessiongate.MetricPanicRecovered, Name: "sessiongate_panic_recovered_total", Help: "Panics recovered inside token operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricVerifyLatency, Name: "sessiongate_verify_latency_seconds", Help: "Verify latency."},
}

// HistogramBounds are the Prometheus "le" labels matching the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the per-bucket OTel gauges.
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

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
