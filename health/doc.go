// Package health reports the liveness of relay components.
//
// A Status is healthy, degraded or unhealthy and may carry sub-statuses.
// The relay exposes the aggregate of every managed component on /healthz:
//
//	status := health.FromComponents("enose-relay", manager.ComponentHealth())
//	if status.IsUnhealthy() {
//	    // 503
//	}
//
// Error text copied from component health is sanitized so listener
// addresses, file paths and URLs do not leak into the endpoint.
package health
