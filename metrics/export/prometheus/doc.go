// Package prometheus renders sessiongate engine metrics in the Prometheus
// text exposition format.
//
// The exporter does not register anything in a global registry; callers
// mount [Exporter.Handler] themselves, typically at GET /metrics.
package prometheus
