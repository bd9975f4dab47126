package soundwave

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricSessionCreated)

	if got := m.Value(MetricSessionCreated); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 16
	const perG = 2000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricSessionValidated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionValidated); got != goroutines*perG {
		t.Fatalf("expected %d, got %d", goroutines*perG, got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		500 * time.Microsecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		80 * time.Millisecond,
		time.Second,
	} {
		m.Observe(MetricValidateLatency, d)
	}
	m.Observe(MetricSessionCreated, time.Millisecond)

	s := m.Snapshot()
	got := s.Histograms[MetricValidateLatency]
	want := []uint64{1, 1, 1, 1, 1, 1, 1, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (%v)", i, want[i], got[i], got)
		}
	}
	if _, ok := s.Counters[MetricValidateLatency]; ok {
		t.Fatalf("latency histogram must not appear as a counter")
	}
}

func TestEngineCountsSessionOperations(t *testing.T) {
	env := newTestEnv(t, nil)
	sid := env.login(t, "u1")
	_, _ = env.engine.ValidateSession(t.Context(), "u1", sid)
	_, _ = env.engine.ValidateSession(t.Context(), "u1", "nope")
	_ = env.engine.RemoveSession(t.Context(), "u1", sid)

	c := env.engine.MetricsSnapshot().Counters
	if c[MetricSessionCreated] != 1 || c[MetricSessionValidated] != 1 || c[MetricSessionRejected] != 1 || c[MetricSessionRemoved] != 1 {
		t.Fatalf("unexpected counters %+v", c)
	}
	if h := env.engine.MetricsSnapshot().Histograms[MetricValidateLatency]; len(h) != 8 {
		t.Fatalf("expected validate latency histogram, got %v", h)
	}
}
