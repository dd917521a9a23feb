// Package prometheus renders folioauth metrics in Prometheus text exposition format.
//
// Related counters share a family and differ by label, for example
// folioauth_login_attempts_total{outcome="rate_limited"}. Login and refresh latency are
// histograms named folioauth_*_duration_seconds. Nothing is registered globally; callers mount
// [PrometheusExporter.Handler].
package prometheus
