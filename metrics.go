package folioauth

import (
	"sync/atomic"
	"time"
)

// MetricID names one in-process counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricLoginLocked
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricSessionCreated
	MetricSessionDeleted
	MetricBlacklistAdded
	MetricBlacklistFailure
	MetricAuthenticateRejected
	MetricSweepDeleted
	MetricLoginLatency
	MetricRefreshLatency
	metricIDCount
)

// LatencyBounds are the inclusive upper bounds of the latency histogram buckets. One more bucket
// past the last bound catches everything slower.
var LatencyBounds = [...]time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

const histBucketCount = len(LatencyBounds) + 1

// histogramIDs lists the ids recorded through Observe, in slot order.
var histogramIDs = [...]MetricID{MetricLoginLatency, MetricRefreshLatency}

// counterCell sits alone on a cache line so hot counters do not false-share.
type counterCell struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus latency histograms for login and refresh.
type Metrics struct {
	enabled  bool
	latency  bool
	counters [metricIDCount]counterCell
	buckets  [len(histogramIDs)][histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets are not cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || n == 0 || id >= metricIDCount || histogramSlot(id) >= 0 {
		return
	}
	m.counters[id].n.Add(n)
}

// Observe records d into a latency histogram. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency {
		return
	}
	if slot := histogramSlot(id); slot >= 0 {
		m.buckets[slot][bucketIndex(d)].Add(1)
	}
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if histogramSlot(id) < 0 {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if !m.latency {
		return s
	}
	for slot, id := range histogramIDs {
		out := make([]uint64, histBucketCount)
		for i := range out {
			out[i] = m.buckets[slot][i].Load()
		}
		s.Histograms[id] = out
	}
	return s
}

func histogramSlot(id MetricID) int {
	for slot, h := range histogramIDs {
		if h == id {
			return slot
		}
	}
	return -1
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(LatencyBounds)
}
