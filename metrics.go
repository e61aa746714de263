package sessiongate

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricVerifySuccess
	MetricVerifyExpired
	MetricVerifyRevoked
	MetricVerifyMalformed
	MetricVerifyInvalid
	MetricRevokeSuccess
	MetricRevokeFailure
	// MetricRevocationsSwept counts entries removed by SweepExpired, not sweep calls.
	MetricRevocationsSwept
	MetricPanicRecovered
	// MetricVerifyLatency only carries a histogram.
	MetricVerifyLatency
	metricIDCount
)

// latencyBounds are the inclusive upper bounds of every latency bucket but
// the last, which is unbounded.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counterSlot is padded to a cache line so hot counters do not share one.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics is a fixed set of lock-free counters plus the Verify latency
// histogram. A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled bool
	latency bool
	counts  [metricIDCount]counterSlot
	verify  [latencyBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter. Histogram
// buckets are non-cumulative with upper bounds 5ms, 10ms, 25ms, 50ms,
// 100ms, 250ms, 500ms and +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a counter set. Latency is only recorded when both
// Enabled and EnableLatencyHistograms are set.
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

// Add increases counter id by n. Unknown ids are ignored.
func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || n == 0 || id >= metricIDCount {
		return
	}
	m.counts[id].n.Add(n)
}

// Observe records one sample. Only MetricVerifyLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id != MetricVerifyLatency {
		return
	}
	m.verify[bucketIndex(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counts[id].n.Load()
}

// Snapshot copies the current values. A disabled Metrics yields empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricVerifyLatency {
			snap.Counters[id] = m.counts[id].n.Load()
		}
	}
	if m.latency {
		buckets := make([]uint64, latencyBucketCount)
		for i := range m.verify {
			buckets[i] = m.verify[i].Load()
		}
		snap.Histograms[MetricVerifyLatency] = buckets
	}
	return snap
}

func bucketIndex(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
