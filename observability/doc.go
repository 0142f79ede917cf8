// Package observability provides an OpenTelemetry-based metrics
// extension for docledger. The MetricsExtension implements lifecycle
// hooks to record system-wide counters for run starts, event
// completions, milestones, failures, resets, and settlements.
//
// For per-step tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
