package enums

import "fmt"

// ExceptionType classifies operational alerts raised against an order.
type ExceptionType string

const (
	ExceptionDelay               ExceptionType = "DELAY"
	ExceptionFailedAttempt       ExceptionType = "FAILED_ATTEMPT"
	ExceptionWrongAddress        ExceptionType = "WRONG_ADDRESS"
	ExceptionCustomerUnavailable ExceptionType = "CUSTOMER_UNAVAILABLE"
	ExceptionDamaged             ExceptionType = "DAMAGED"
	ExceptionOther               ExceptionType = "OTHER"
)

var validExceptionTypes = []ExceptionType{
	ExceptionDelay,
	ExceptionFailedAttempt,
	ExceptionWrongAddress,
	ExceptionCustomerUnavailable,
	ExceptionDamaged,
	ExceptionOther,
}

// IsValid reports whether the value is a known ExceptionType.
func (e ExceptionType) IsValid() bool {
	for _, candidate := range validExceptionTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExceptionType converts raw input into an ExceptionType.
func ParseExceptionType(value string) (ExceptionType, error) {
	for _, candidate := range validExceptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid exception type %q", value)
}

// ExceptionStatus tracks the handling state of an exception.
// RESOLVED is reachable directly from OPEN; the acknowledge step is optional.
type ExceptionStatus string

const (
	ExceptionStatusOpen         ExceptionStatus = "OPEN"
	ExceptionStatusAcknowledged ExceptionStatus = "ACKNOWLEDGED"
	ExceptionStatusResolved     ExceptionStatus = "RESOLVED"
)

// IsValid reports whether the value is a known ExceptionStatus.
func (e ExceptionStatus) IsValid() bool {
	switch e {
	case ExceptionStatusOpen, ExceptionStatusAcknowledged, ExceptionStatusResolved:
		return true
	default:
		return false
	}
}
