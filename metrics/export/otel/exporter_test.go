package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/realtime"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot soundwave.MetricsSnapshot
	dropped  uint64
	stats    realtime.Stats
}

func (f *fakeSource) MetricsSnapshot() soundwave.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := soundwave.MetricsSnapshot{
		Counters:   make(map[soundwave.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[soundwave.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func (f *fakeSource) BroadcastStats() realtime.Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats
}

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				return data.DataPoints[0].Value
			case metricdata.Gauge[int64]:
				return data.DataPoints[0].Value
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader(t)

	src := &fakeSource{
		snapshot: soundwave.MetricsSnapshot{
			Counters: map[soundwave.MetricID]uint64{
				soundwave.MetricSessionCreated: 3,
			},
			Histograms: map[soundwave.MetricID][]uint64{
				soundwave.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
		stats:   realtime.Stats{Delivered: 9},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("soundwave-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := map[string]int64{
		"soundwave_session_created_total":                    3,
		"soundwave_validate_latency_seconds_bucket_le_0_005": 3,
		"soundwave_validate_latency_seconds_bucket_le_inf":   8,
		"soundwave_validate_latency_seconds_count":           8,
		"soundwave_broadcast_delivered_total":                9,
		"soundwave_audit_dropped_total":                      1,
	}
	for name, want := range checks {
		if got := sumValue(t, rm, name); got != want {
			t.Fatalf("%s: expected %d, got %d", name, want, got)
		}
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader(t)

	if _, err := NewOTelExporterFromSource(provider.Meter("soundwave-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
	if _, err := NewOTelExporter(provider.Meter("soundwave-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader(t)

	src := &fakeSource{
		snapshot: soundwave.MetricsSnapshot{
			Counters:   map[soundwave.MetricID]uint64{soundwave.MetricAudioPlay: 1},
			Histograms: map[soundwave.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("soundwave-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[soundwave.MetricAudioPlay] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
