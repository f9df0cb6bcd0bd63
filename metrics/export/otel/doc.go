// Package otel binds engine counters and histograms to OpenTelemetry
// instruments.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each
// engine counter and Int64ObservableGauge per histogram bucket. A single
// callback reads [authcore.Engine.MetricsSnapshot] on each collection
// cycle. Callers own the MeterProvider and supply the Meter.
package otel
