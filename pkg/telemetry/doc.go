// Package telemetry carries the observability stack for orchard: a zerolog
// based structured logger with context propagation, a Prometheus metrics
// registry for workflow executions, and an OpenTelemetry tracer. All three
// are configured from one Config with development and production presets.
package telemetry
