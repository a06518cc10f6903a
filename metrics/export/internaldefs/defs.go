package internaldefs

import (
	goSSO "github.com/MrEthical07/goSSO"
)

// CounterDef names one exported engine counter.
type CounterDef struct {
	ID   goSSO.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   goSSO.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSSO.MetricLoginSuccess, Name: "gosso_login_success_total", Help: "Successful logins."},
	{ID: goSSO.MetricLoginFailure, Name: "gosso_login_failure_total", Help: "Failed logins."},
	{ID: goSSO.MetricLoginBlocked, Name: "gosso_login_blocked_total", Help: "Logins refused for locked or disabled principals."},
	{ID: goSSO.MetricAccountLocked, Name: "gosso_account_locked_total", Help: "Principals locked."},
	{ID: goSSO.MetricAccountUnlocked, Name: "gosso_account_unlocked_total", Help: "Principals unlocked."},
	{ID: goSSO.MetricAccountDisabled, Name: "gosso_account_disabled_total", Help: "Principals disabled."},
	{ID: goSSO.MetricAccountEnabled, Name: "gosso_account_enabled_total", Help: "Principals re-enabled."},
	{ID: goSSO.MetricSessionCreated, Name: "gosso_session_created_total", Help: "Created sessions."},
	{ID: goSSO.MetricSessionInvalidated, Name: "gosso_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: goSSO.MetricSessionRenewed, Name: "gosso_session_renewed_total", Help: "Explicit session renewals."},
	{ID: goSSO.MetricLogout, Name: "gosso_logout_total", Help: "Single-session logouts."},
	{ID: goSSO.MetricLogoutAll, Name: "gosso_logout_all_total", Help: "Logout-all operations."},
	{ID: goSSO.MetricTicketIssued, Name: "gosso_ticket_issued_total", Help: "Issued service tickets."},
	{ID: goSSO.MetricTicketValidated, Name: "gosso_ticket_validated_total", Help: "Redeemed service tickets."},
	{ID: goSSO.MetricTicketRejected, Name: "gosso_ticket_rejected_total", Help: "Rejected ticket redemptions."},
	{ID: goSSO.MetricSingleLogout, Name: "gosso_single_logout_total", Help: "Single logouts."},
	{ID: goSSO.MetricPermissionCacheHit, Name: "gosso_permission_cache_hit_total", Help: "Permission cache hits."},
	{ID: goSSO.MetricPermissionCacheMiss, Name: "gosso_permission_cache_miss_total", Help: "Permission cache misses."},
	{ID: goSSO.MetricPermissionInvalidation, Name: "gosso_permission_invalidation_total", Help: "Permission cache invalidations."},
	{ID: goSSO.MetricPermissionInvalidationFailed, Name: "gosso_permission_invalidation_failed_total", Help: "RBAC writes whose cache invalidation failed."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSSO.MetricValidateLatency, Name: "gosso_validate_latency_seconds", Help: "Session validation latency."},
	{ID: goSSO.MetricTicketValidateLatency, Name: "gosso_ticket_validate_latency_seconds", Help: "Ticket redemption latency."},
}

// AuditDroppedName is the counter of audit events dropped on a full buffer.
const AuditDroppedName = "gosso_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds; the eighth
// engine bucket is +Inf.
var HistogramUpperBounds = [7]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without
// native histograms.
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

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
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
