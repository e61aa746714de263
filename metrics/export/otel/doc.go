// Package otel publishes sessiongate engine metrics through an OpenTelemetry
// meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per cumulative latency bucket. A single callback
// reads the engine snapshot on each collection cycle. Callers own the
// MeterProvider.
package otel
