/*
Package observability provides Prometheus metrics for the intake engine.

The collectors plug into domain.LifecycleHooks, so the orchestrator stays
unaware of Prometheus; wiring Metrics.Hooks() into the engine is all it
takes to get per-turn counters, red-flag counts, and latency histograms.
*/
package observability
