// Package internaldefs holds the metric names and bucket boundaries shared by
// the Prometheus and OpenTelemetry exporters, so both expose identical series.
package internaldefs
