// Package metric provides Prometheus metrics for the relay and an HTTP server
// exposing them together with a health endpoint.
//
// A single MetricsRegistry owns the Prometheus registry. It pre-registers the
// relay metrics (frames, rejections, bus publishes and drops, sessions,
// commands, recorder rows, NATS mirror state) and the Go runtime collectors.
// Components may register their own collectors through MetricsRegistrar.
//
// Record methods on *Metrics are no-ops on a nil receiver, so components
// constructed without a registry skip instrumentation:
//
//	m := deps.MetricsRegistry.CoreMetrics() // nil when registry is nil
//	m.RecordFrame("data")
//
// The HTTP server serves /metrics in OpenMetrics format and /healthz as the
// JSON encoding of a health.Status:
//
//	server := metric.NewServer(":9090", "/metrics", registry, monitor.Snapshot)
//	go server.Start()
//	defer server.Stop(5 * time.Second)
package metric
