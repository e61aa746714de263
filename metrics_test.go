package sessiongate

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got, want := m.Value(MetricVerifySuccess), uint64(goroutines*perG); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsAdd(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Add(MetricRevocationsSwept, 5)
	m.Add(MetricRevocationsSwept, 0)
	m.Add(metricIDCount, 1)

	if got := m.Value(MetricRevocationsSwept); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	} {
		m.Observe(MetricVerifyLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricVerifyLatency]
	if len(buckets) != latencyBucketCount {
		t.Fatalf("expected %d buckets, got %d", latencyBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, v)
		}
	}
	if _, ok := m.Snapshot().Counters[MetricVerifyLatency]; ok {
		t.Fatal("latency id must not appear as a counter")
	}
}

func TestMetricsLatencyDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricVerifyLatency, time.Millisecond)

	if _, ok := m.Snapshot().Histograms[MetricVerifyLatency]; ok {
		t.Fatal("expected no histogram when latency is disabled")
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricVerifyLatency, time.Millisecond)
	if m.Enabled() || m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("expected nil metrics to be inert")
	}
}
