package health

import (
	"sort"
	"time"

	"github.com/ianfajar-codes/SPS-Enose-Project/component"
)

// NewHealthy creates a new healthy status
func NewHealthy(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   true,
		Status:    StatusHealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   false,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(name, message string) Status {
	return Status{
		Component: name,
		Healthy:   false,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate combines sub-statuses: unhealthy if any is unhealthy, else
// degraded if any is degraded, else healthy.
func Aggregate(name string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(name, "No sub-components to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	if hasUnhealthy {
		status = NewUnhealthy(name, "One or more sub-components are unhealthy")
	} else if hasDegraded {
		status = NewDegraded(name, "One or more sub-components are degraded")
	} else {
		status = NewHealthy(name, "All sub-components are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)

	return status
}

// FromComponents aggregates the health of named components, sorted by name.
func FromComponents(system string, components map[string]component.HealthStatus) Status {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	subs := make([]Status, 0, len(names))
	for _, name := range names {
		subs = append(subs, FromComponentHealth(name, components[name]))
	}
	return Aggregate(system, subs)
}
