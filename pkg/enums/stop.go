package enums

import "fmt"

// StopType distinguishes pickup and drop locations within an order.
type StopType string

const (
	StopTypePickup StopType = "PICKUP"
	StopTypeDrop   StopType = "DROP"
)

// IsValid reports whether the value is a known StopType.
func (s StopType) IsValid() bool {
	return s == StopTypePickup || s == StopTypeDrop
}

// ParseStopType converts raw input into a StopType.
func ParseStopType(value string) (StopType, error) {
	switch StopType(value) {
	case StopTypePickup, StopTypeDrop:
		return StopType(value), nil
	}
	return "", fmt.Errorf("invalid stop type %q", value)
}

// StopStatus tracks progress at an individual stop.
type StopStatus string

const (
	StopStatusPending   StopStatus = "PENDING"
	StopStatusArrived   StopStatus = "ARRIVED"
	StopStatusCompleted StopStatus = "COMPLETED"
	StopStatusSkipped   StopStatus = "SKIPPED"
)

var validStopStatuses = []StopStatus{
	StopStatusPending,
	StopStatusArrived,
	StopStatusCompleted,
	StopStatusSkipped,
}

// IsValid reports whether the value is a known StopStatus.
func (s StopStatus) IsValid() bool {
	for _, candidate := range validStopStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
