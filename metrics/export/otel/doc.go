// Package otel registers observable OpenTelemetry instruments for Engine
// counters, the validate latency buckets and realtime gateway stats. A single
// callback reads one snapshot per collection cycle. The MeterProvider belongs
// to the caller.
package otel
