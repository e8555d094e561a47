package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// CreateStopInput describes one stop at order creation time. Sequence indices
// are caller-supplied and not checked for contiguity or uniqueness.
type CreateStopInput struct {
	SequenceIndex int            `json:"sequence_index" validate:"gte=1"`
	Type          enums.StopType `json:"type" validate:"required"`
	AddressLine   string         `json:"address_line" validate:"required"`
	City          string         `json:"city"`
	State         string         `json:"state"`
	PostalCode    string         `json:"postal_code"`
	Lat           *float64       `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng           *float64       `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	ScheduledETA  *time.Time     `json:"scheduled_eta"`
	Notes         string         `json:"notes"`
}

// CreateOrderInput captures the data required to create an order.
type CreateOrderInput struct {
	ReferenceCode     string            `json:"reference_code" validate:"required,max=64"`
	CustomerName      string            `json:"customer_name" validate:"required,max=255"`
	CustomerPhone     string            `json:"customer_phone" validate:"required,max=32"`
	CustomerEmail     string            `json:"customer_email" validate:"omitempty,email"`
	PickupWindowStart *time.Time        `json:"pickup_window_start"`
	PickupWindowEnd   *time.Time        `json:"pickup_window_end"`
	DropWindowStart   *time.Time        `json:"drop_window_start"`
	DropWindowEnd     *time.Time        `json:"drop_window_end"`
	Notes             string            `json:"notes"`
	Stops             []CreateStopInput `json:"stops" validate:"required,min=1,dive"`
}

// StopDTO exposes stop data in API responses.
type StopDTO struct {
	ID                uuid.UUID        `json:"id"`
	SequenceIndex     int              `json:"sequence_index"`
	Type              enums.StopType   `json:"type"`
	AddressLine       string           `json:"address_line"`
	City              string           `json:"city,omitempty"`
	State             string           `json:"state,omitempty"`
	PostalCode        string           `json:"postal_code,omitempty"`
	Lat               *float64         `json:"lat,omitempty"`
	Lng               *float64         `json:"lng,omitempty"`
	ScheduledETA      *time.Time       `json:"scheduled_eta,omitempty"`
	ActualArrivalTime *time.Time       `json:"actual_arrival_time,omitempty"`
	Status            enums.StopStatus `json:"status"`
	Notes             string           `json:"notes,omitempty"`
}

// OrderDTO exposes order data in API responses.
type OrderDTO struct {
	ID                uuid.UUID         `json:"id"`
	ReferenceCode     string            `json:"reference_code"`
	CustomerName      string            `json:"customer_name"`
	CustomerPhone     string            `json:"customer_phone"`
	CustomerEmail     string            `json:"customer_email,omitempty"`
	Status            enums.OrderStatus `json:"status"`
	TrackingToken     string            `json:"tracking_token"`
	AssignedRouteID   *uuid.UUID        `json:"assigned_route_id,omitempty"`
	PickupWindowStart *time.Time        `json:"pickup_window_start,omitempty"`
	PickupWindowEnd   *time.Time        `json:"pickup_window_end,omitempty"`
	DropWindowStart   *time.Time        `json:"drop_window_start,omitempty"`
	DropWindowEnd     *time.Time        `json:"drop_window_end,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	Stops             []StopDTO         `json:"stops,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// StatusHistoryDTO exposes one audit trail entry.
type StatusHistoryDTO struct {
	ID          uuid.UUID         `json:"id"`
	StopID      *uuid.UUID        `json:"stop_id,omitempty"`
	ActorUserID *uuid.UUID        `json:"actor_user_id,omitempty"`
	ActorType   enums.ActorType   `json:"actor_type"`
	FromStatus  enums.OrderStatus `json:"from_status,omitempty"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status  *enums.OrderStatus
	RouteID *uuid.UUID
}

// StopFromModel maps a persisted stop into a DTO.
func StopFromModel(m models.Stop) StopDTO {
	return StopDTO{
		ID:                m.ID,
		SequenceIndex:     m.SequenceIndex,
		Type:              m.Type,
		AddressLine:       m.AddressLine,
		City:              m.City,
		State:             m.State,
		PostalCode:        m.PostalCode,
		Lat:               m.Lat,
		Lng:               m.Lng,
		ScheduledETA:      m.ScheduledETA,
		ActualArrivalTime: m.ActualArrivalTime,
		Status:            m.Status,
		Notes:             m.Notes,
	}
}

// FromModel maps a persisted order into a DTO.
func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                m.ID,
		ReferenceCode:     m.ReferenceCode,
		CustomerName:      m.CustomerName,
		CustomerPhone:     m.CustomerPhone,
		CustomerEmail:     m.CustomerEmail,
		Status:            m.Status,
		TrackingToken:     m.TrackingToken,
		AssignedRouteID:   m.AssignedRouteID,
		PickupWindowStart: m.PickupWindowStart,
		PickupWindowEnd:   m.PickupWindowEnd,
		DropWindowStart:   m.DropWindowStart,
		DropWindowEnd:     m.DropWindowEnd,
		Notes:             m.Notes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for _, stop := range m.Stops {
		dto.Stops = append(dto.Stops, StopFromModel(stop))
	}
	return dto
}

// HistoryFromModel maps audit entries into DTOs.
func HistoryFromModel(entries []models.StatusHistory) []StatusHistoryDTO {
	out := make([]StatusHistoryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, StatusHistoryDTO{
			ID:          entry.ID,
			StopID:      entry.StopID,
			ActorUserID: entry.ActorUserID,
			ActorType:   entry.ActorType,
			FromStatus:  entry.FromStatus,
			ToStatus:    entry.ToStatus,
			Metadata:    entry.Metadata,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return out
}
