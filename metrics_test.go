package goIdentity

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricBackendLatency, time.Millisecond)

	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsNilRegistryIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLogout)
	m.Observe(MetricBackendLatency, time.Second)
	if m.Value(MetricLogout) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil registry must report nothing")
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers, perWorker = 16, 500
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricMFAVerifySuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricMFAVerifySuccess); got != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricBackendLatency, 3*time.Millisecond)
	m.Observe(MetricBackendLatency, 5*time.Millisecond)
	m.Observe(MetricBackendLatency, 40*time.Millisecond)
	m.Observe(MetricBackendLatency, 2*time.Second)
	// Only the backend latency id is a histogram.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	buckets := m.Snapshot().Histograms[MetricBackendLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 2 || buckets[3] != 1 || buckets[histBucketCount-1] != 1 {
		t.Fatalf("unexpected bucket distribution %v", buckets)
	}
	if len(LatencyBucketBounds()) != histBucketCount-1 {
		t.Fatal("bounds must cover every bucket but the overflow one")
	}
}

func TestMetricsLatencyRequiresEnabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	if m.LatencyEnabled() {
		t.Fatal("latency must stay off while metrics are disabled")
	}
}

func TestMetricsSnapshotExcludesHistogramCounter(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLogout)

	snap := m.Snapshot()
	if _, ok := snap.Counters[MetricBackendLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
	if snap.Counters[MetricLogout] != 1 {
		t.Fatalf("expected logout=1, got %d", snap.Counters[MetricLogout])
	}
	if len(snap.Histograms) != 0 {
		t.Fatal("histograms must be absent when latency is disabled")
	}
}

func TestManagerRecordsFlowMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.m.Login(ctx, "alice@example.com", "wrong"); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := f.m.Login(ctx, "alice@example.com", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.m.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	snap := f.m.MetricsSnapshot()
	if snap.Counters[MetricLoginFailure] != 1 || snap.Counters[MetricLoginSuccess] != 1 || snap.Counters[MetricLogout] != 1 {
		t.Fatalf("unexpected counters %v", snap.Counters)
	}

	var observed uint64
	for _, n := range snap.Histograms[MetricBackendLatency] {
		observed += n
	}
	if observed == 0 {
		t.Fatal("expected backend calls to be timed")
	}
}
