package routes

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// CreateRouteInput describes a new route and the CREATED orders to pull onto it.
type CreateRouteInput struct {
	RouteDate time.Time   `json:"route_date" validate:"required"`
	DriverID  uuid.UUID   `json:"driver_id" validate:"required"`
	VehicleID uuid.UUID   `json:"vehicle_id" validate:"required"`
	OrderIDs  []uuid.UUID `json:"order_ids" validate:"required,min=1"`
	Notes     string      `json:"notes"`
	Optimize  bool        `json:"optimize"`
}

// RouteDTO is the API shape for a route.
type RouteDTO struct {
	ID        uuid.UUID         `json:"id"`
	RouteDate string            `json:"route_date"`
	DriverID  uuid.UUID         `json:"driver_id"`
	VehicleID uuid.UUID         `json:"vehicle_id"`
	Status    enums.RouteStatus `json:"status"`
	StartTime *time.Time        `json:"start_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Driver    *DriverSummary    `json:"driver,omitempty"`
	Vehicle   *VehicleSummary   `json:"vehicle,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// DriverSummary is the embedded driver view on a route.
type DriverSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

// VehicleSummary is the embedded vehicle view on a route.
type VehicleSummary struct {
	ID          uuid.UUID         `json:"id"`
	PlateNumber string            `json:"plate_number"`
	Type        enums.VehicleType `json:"type"`
}

// FromModel maps a route row to its DTO.
func FromModel(m *models.Route) RouteDTO {
	dto := RouteDTO{
		ID:        m.ID,
		RouteDate: m.RouteDate.Format("2006-01-02"),
		DriverID:  m.DriverID,
		VehicleID: m.VehicleID,
		Status:    m.Status,
		StartTime: m.StartTime,
		EndTime:   m.EndTime,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
	if m.Driver != nil {
		dto.Driver = &DriverSummary{ID: m.Driver.ID, Name: m.Driver.Name, Phone: m.Driver.Phone}
	}
	if m.Vehicle != nil {
		dto.Vehicle = &VehicleSummary{ID: m.Vehicle.ID, PlateNumber: m.Vehicle.PlateNumber, Type: m.Vehicle.Type}
	}
	return dto
}
