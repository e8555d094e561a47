package enums

import "fmt"

// RouteStatus tracks the lifecycle of a daily driver route.
type RouteStatus string

const (
	RouteStatusPlanned    RouteStatus = "PLANNED"
	RouteStatusInProgress RouteStatus = "IN_PROGRESS"
	RouteStatusCompleted  RouteStatus = "COMPLETED"
	RouteStatusCancelled  RouteStatus = "CANCELLED"
)

var validRouteStatuses = []RouteStatus{
	RouteStatusPlanned,
	RouteStatusInProgress,
	RouteStatusCompleted,
	RouteStatusCancelled,
}

// String implements fmt.Stringer.
func (r RouteStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RouteStatus.
func (r RouteStatus) IsValid() bool {
	for _, candidate := range validRouteStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRouteStatus converts raw input into a RouteStatus.
func ParseRouteStatus(value string) (RouteStatus, error) {
	for _, candidate := range validRouteStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid route status %q", value)
}
