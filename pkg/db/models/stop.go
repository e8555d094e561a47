package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/enums"
)

// Stop is a pickup or drop location owned by exactly one order. Sequence
// indices are caller-supplied and define the visiting order; they are not
// validated for contiguity or uniqueness.
type Stop struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	SequenceIndex     int              `gorm:"column:sequence_index;not null"`
	Type              enums.StopType   `gorm:"column:type;type:text;not null"`
	AddressLine       string           `gorm:"column:address_line;not null"`
	City              string           `gorm:"column:city"`
	State             string           `gorm:"column:state"`
	PostalCode        string           `gorm:"column:postal_code"`
	Lat               *float64         `gorm:"column:lat"`
	Lng               *float64         `gorm:"column:lng"`
	ScheduledETA      *time.Time       `gorm:"column:scheduled_eta"`
	ActualArrivalTime *time.Time       `gorm:"column:actual_arrival_time"`
	Status            enums.StopStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	Notes             string           `gorm:"column:notes"`
}

func (Stop) TableName() string { return "stops" }

// HasCoordinates reports whether the stop carries a usable lat/lng pair.
func (s Stop) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}
