// Package otel republishes goPermit decision metrics through an
// OpenTelemetry meter using observable instruments.
//
// Collection is pull-based: the registered callback reads one
// MetricsSnapshot per scrape, so the exporter never touches the check hot
// path.
//
// # What this package must NOT do
//
//   - Push metrics or own an exporter pipeline; the caller brings the
//     MeterProvider.
//   - Reach into Engine internals beyond MetricsSnapshot and AuditDropped.
package otel
