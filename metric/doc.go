// Package metric provides the Prometheus metrics of the profiler.
//
// MetricsRegistry owns a private Prometheus registry holding the profiler
// metrics (Metrics) plus the Go runtime and process collectors. The health
// server exposes it at /metrics through MetricsRegistry.Handler.
//
// Every Record method accepts a nil *Metrics, so components built without a
// registry, as most tests build them, need no nil checks:
//
//	registry := metric.NewMetricsRegistry()
//	m := registry.CoreMetrics()
//	m.RecordCycle(metric.OutcomePublished)
//
// Since the process exits after one cycle, counters describe a single
// invocation unless a Pushgateway or a scrape before exit collects them.
package metric
