// Package prometheus exposes Engine counters, the validate latency histogram
// and realtime gateway stats as a prometheus.Collector.
//
// Handler mounts the collector on its own registry; callers that already run a
// registry can register the exporter there instead.
package prometheus
