// Package otel exposes manager counters and histograms as OpenTelemetry
// observable instruments.
//
// One Int64ObservableCounter is registered per counter and one
// Int64ObservableGauge per histogram bucket; a single callback reads
// Manager.MetricsSnapshot on each collection. The same callback reports the
// audit dispatcher counters and session gauges; enrollment state is one gauge
// point per state attribute.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate manager state.
package otel
