// Package internaldefs holds the metric name and bucket definitions shared
// by the exporter implementations, so the Prometheus and OTel exporters
// always publish identical names and boundaries. It performs no I/O and
// imports nothing beyond the root module.
package internaldefs
