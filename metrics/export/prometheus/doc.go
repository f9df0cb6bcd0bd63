// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts an [authcore.Engine] and exposes an
// [net/http.Handler] for scraping. Counter names are prefixed
// authcore_*_total; the single histogram is
// authcore_authenticate_latency_seconds. Nothing is registered globally.
package prometheus
