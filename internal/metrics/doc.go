// Package metrics collects routing and health check metrics for the edge router.
//
// Producers emit MetricEvent values on a buffered channel with Emit, which never
// blocks. A single collector goroutine consumes them and updates two views:
//   - an in-memory Snapshot served as JSON (selections per backend, routing
//     failures by reason, probe counts and P50/P95/P99 probe latency, reloads)
//   - Prometheus vectors on a private registry served by PrometheusHandler
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	metrics.Emit(collector.EventChannel(), metrics.MetricEvent{
//		Type:     metrics.EventRouteSelected,
//		Upstream: "web",
//		Backend:  "10.0.0.1:80",
//	})
//
//	snapshot := collector.Snapshot()
//
// Remaining events are drained when the collector's context is cancelled.
package metrics
