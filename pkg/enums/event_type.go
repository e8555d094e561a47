package enums

// EventType names a domain event emitted through the outbox. Tenants may
// subscribe to a subset of these via their webhook event allowlist.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderCancelled     EventType = "order.cancelled"
	EventExceptionRaised    EventType = "exception.raised"
)

var validEventTypes = []EventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventExceptionRaised,
}

// String implements fmt.Stringer.
func (e EventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EventType.
func (e EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
