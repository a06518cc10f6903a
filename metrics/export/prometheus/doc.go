// Package prometheus exposes goSSO engine metrics as a Prometheus collector.
//
// [NewExporter] wraps an [goSSO.Engine] in a [prometheus.Collector] that reads
// [goSSO.Engine.MetricsSnapshot] on every scrape. Counters are named
// gosso_*_total; the two latency histograms are gosso_validate_latency_seconds and
// gosso_ticket_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry; callers register the collector
//     or mount [Exporter.Handler], which uses a private registry.
//   - Mutate engine state.
package prometheus
