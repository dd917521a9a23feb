package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/folioauth"
)

// Series is one labelled member of a Family.
type Series struct {
	ID    folioauth.MetricID
	Value string
}

// Family is a counter exported under one name. Label is empty for single-series families.
type Family struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// Histogram binds a latency histogram to its exported name.
type Histogram struct {
	ID   folioauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter fed from Engine.AuditDropped rather than the snapshot.
const AuditDroppedName = "folioauth_audit_dropped_total"

var Families = []Family{
	{
		Name:  "folioauth_login_attempts_total",
		Help:  "Admin login attempts by outcome.",
		Label: "outcome",
		Series: []Series{
			{ID: folioauth.MetricLoginSuccess, Value: "success"},
			{ID: folioauth.MetricLoginFailure, Value: "failure"},
			{ID: folioauth.MetricLoginRateLimited, Value: "rate_limited"},
		},
	},
	{
		Name:   "folioauth_lockouts_total",
		Help:   "Identifiers blocked after reaching the failure limit.",
		Series: []Series{{ID: folioauth.MetricLoginLocked}},
	},
	{
		Name:  "folioauth_refresh_total",
		Help:  "Refresh-token rotations by outcome.",
		Label: "outcome",
		Series: []Series{
			{ID: folioauth.MetricRefreshSuccess, Value: "success"},
			{ID: folioauth.MetricRefreshFailure, Value: "failure"},
		},
	},
	{
		Name:   "folioauth_logout_total",
		Help:   "Logout requests.",
		Series: []Series{{ID: folioauth.MetricLogout}},
	},
	{
		Name:  "folioauth_session_events_total",
		Help:  "admin_sessions rows written and removed.",
		Label: "event",
		Series: []Series{
			{ID: folioauth.MetricSessionCreated, Value: "created"},
			{ID: folioauth.MetricSessionDeleted, Value: "deleted"},
		},
	},
	{
		Name:  "folioauth_blacklist_writes_total",
		Help:  "Token revocations written to the blacklist by result.",
		Label: "result",
		Series: []Series{
			{ID: folioauth.MetricBlacklistAdded, Value: "ok"},
			{ID: folioauth.MetricBlacklistFailure, Value: "error"},
		},
	},
	{
		Name:   "folioauth_authenticate_rejected_total",
		Help:   "Access tokens rejected by the guard.",
		Series: []Series{{ID: folioauth.MetricAuthenticateRejected}},
	},
	{
		Name:   "folioauth_sweep_deleted_total",
		Help:   "Rows removed by the background sweeper.",
		Series: []Series{{ID: folioauth.MetricSweepDeleted}},
	},
}

var Histograms = []Histogram{
	{ID: folioauth.MetricLoginLatency, Name: "folioauth_login_duration_seconds", Help: "Login latency."},
	{ID: folioauth.MetricRefreshLatency, Name: "folioauth_refresh_duration_seconds", Help: "Refresh latency."},
}

// BucketLabels returns the "le" values of folioauth.LatencyBounds followed by "+Inf".
func BucketLabels() []string {
	out := make([]string, 0, len(folioauth.LatencyBounds)+1)
	for _, b := range folioauth.LatencyBounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'f', -1, 64))
	}
	return append(out, "+Inf")
}

// Cumulative turns per-bucket counts into running totals sized to BucketLabels. Missing buckets
// count as zero.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(folioauth.LatencyBounds)+1)
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
