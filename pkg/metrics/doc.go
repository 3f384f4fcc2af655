// Package metrics tracks update run outcomes and exposes them to Prometheus.
//
// Key components:
//   - Metrics: Queues run metrics and applies them to gauges and counters.
//   - NewMetric: Creates a metric from a run report.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterRun(metrics.NewMetric(report, pushed, err))
//
// A nil metric records a run that was skipped because another run held the lock.
package metrics
