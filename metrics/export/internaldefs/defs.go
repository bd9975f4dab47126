package internaldefs

import (
	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/realtime"
)

// CounterDef maps an Engine counter to its exported name.
type CounterDef struct {
	ID   soundwave.MetricID
	Name string
	Help string
}

// HistogramDef maps an Engine histogram to its exported name.
type HistogramDef struct {
	ID   soundwave.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: soundwave.MetricSessionCreated, Name: "soundwave_session_created_total", Help: "Device sessions registered."},
	{ID: soundwave.MetricSessionRemoved, Name: "soundwave_session_removed_total", Help: "Device sessions removed."},
	{ID: soundwave.MetricSessionValidated, Name: "soundwave_session_validated_total", Help: "Session checks that found a live session."},
	{ID: soundwave.MetricSessionRejected, Name: "soundwave_session_rejected_total", Help: "Session checks rejected as invalid."},
	{ID: soundwave.MetricProfileUpdated, Name: "soundwave_profile_updated_total", Help: "Per-session profile switches."},
	{ID: soundwave.MetricLogoutAll, Name: "soundwave_logout_all_total", Help: "Logout-everywhere operations."},
	{ID: soundwave.MetricAudioPlay, Name: "soundwave_audio_play_total", Help: "Audio-play notifications handled."},
	{ID: soundwave.MetricDeactivationDetected, Name: "soundwave_deactivation_detected_total", Help: "Requests that found the account deactivated."},
	{ID: soundwave.MetricSessionsRevoked, Name: "soundwave_sessions_revoked_total", Help: "Session sets cleared on deactivation."},
	{ID: soundwave.MetricMissingCredentials, Name: "soundwave_missing_credentials_total", Help: "Protected requests without a user or Session-ID."},
	{ID: soundwave.MetricStoreError, Name: "soundwave_store_error_total", Help: "Session store failures."},
	{ID: soundwave.MetricAccountLookupError, Name: "soundwave_account_lookup_error_total", Help: "Account system-of-record failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: soundwave.MetricValidateLatency, Name: "soundwave_validate_latency_seconds", Help: "Session check-and-refresh latency."},
}

// Upper bounds of the Engine's validate latency buckets, in seconds. The last
// bucket is +Inf.
var HistogramBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters that
// flatten a histogram into gauges.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_002",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

const (
	AuditDroppedName = "soundwave_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// GatewayDef names one realtime gateway counter.
type GatewayDef struct {
	Name string
	Help string
	Get  func(realtime.Stats) uint64
}

var GatewayDefs = []GatewayDef{
	{Name: "soundwave_broadcast_enqueued_total", Help: "Realtime broadcasts accepted by the gateway queue.", Get: func(s realtime.Stats) uint64 { return s.Enqueued }},
	{Name: "soundwave_broadcast_delivered_total", Help: "Realtime broadcasts handed to the publisher.", Get: func(s realtime.Stats) uint64 { return s.Delivered }},
	{Name: "soundwave_broadcast_failed_total", Help: "Realtime broadcasts the publisher rejected.", Get: func(s realtime.Stats) uint64 { return s.Failed }},
	{Name: "soundwave_broadcast_dropped_total", Help: "Realtime broadcasts dropped before delivery.", Get: func(s realtime.Stats) uint64 { return s.Dropped }},
}

// NormalizeBuckets copies raw into a fixed array, zero filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
