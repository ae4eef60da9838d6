// Package tracer wires OpenTelemetry tracing for API calls.
//
// Tracing is opt-in: without an OTLP endpoint Setup installs nothing and
// spans started through StartSpan are no-ops.
package tracer
