// Package otel binds folioauth metrics to OpenTelemetry instruments.
//
// Each counter family becomes one Int64ObservableCounter whose series carry the family label as
// an attribute. Latency histograms are published as a cumulative bucket gauge keyed by the "le"
// attribute plus a sample counter. One callback reads the engine snapshot per collection; the
// caller owns the MeterProvider.
package otel
