package prometheus

import (
	"net/http"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/metrics/export/internaldefs"
	"github.com/MrEthical07/soundwave/realtime"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() soundwave.MetricsSnapshot
	AuditDropped() uint64
	BroadcastStats() realtime.Stats
}

// PrometheusExporter is a prometheus.Collector over an Engine snapshot.
// Values are read at scrape time; nothing is cached between scrapes.
type PrometheusExporter struct {
	source     metricsSource
	counters   []*prom.Desc
	histograms []*prom.Desc
	gateway    []*prom.Desc
	dropped    *prom.Desc
}

var _ prom.Collector = (*PrometheusExporter)(nil)

// NewPrometheusExporter creates an exporter that reads from engine.
func NewPrometheusExporter(engine *soundwave.Engine) *PrometheusExporter {
	return NewPrometheusExporterFromSource(engine)
}

func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:  source,
		dropped: prom.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		p.counters = append(p.counters, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms = append(p.histograms, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.GatewayDefs {
		p.gateway = append(p.gateway, prom.NewDesc(def.Name, def.Help, nil, nil))
	}
	return p
}

func (p *PrometheusExporter) Describe(ch chan<- *prom.Desc) {
	for _, d := range p.counters {
		ch <- d
	}
	for _, d := range p.histograms {
		ch <- d
	}
	for _, d := range p.gateway {
		ch <- d
	}
	ch <- p.dropped
}

func (p *PrometheusExporter) Collect(ch chan<- prom.Metric) {
	if p == nil || p.source == nil {
		return
	}

	snapshot := p.source.MetricsSnapshot()
	for i, def := range internaldefs.CounterDefs {
		ch <- prom.MustNewConstMetric(p.counters[i], prom.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for j, le := range internaldefs.HistogramBounds {
			buckets[le] = cumulative[j]
		}
		// The Engine does not track a sum; 0 keeps the series well-formed.
		ch <- prom.MustNewConstHistogram(p.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	stats := p.source.BroadcastStats()
	for i, def := range internaldefs.GatewayDefs {
		ch <- prom.MustNewConstMetric(p.gateway[i], prom.CounterValue, float64(def.Get(stats)))
	}

	ch <- prom.MustNewConstMetric(p.dropped, prom.CounterValue, float64(p.source.AuditDropped()))
}

// Handler serves the exporter from a private registry, together with the Go
// runtime and process collectors.
func (p *PrometheusExporter) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(
		p,
		prom.NewGoCollector(),
		prom.NewProcessCollector(prom.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
