package vehicles

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// VehicleDTO exposes vehicle data in API responses.
type VehicleDTO struct {
	ID          uuid.UUID         `json:"id"`
	PlateNumber string            `json:"plate_number"`
	Type        enums.VehicleType `json:"type"`
	CapacityKG  int               `json:"capacity_kg"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
}

// FromModel maps a persisted vehicle into a DTO.
func FromModel(m *models.Vehicle) *VehicleDTO {
	if m == nil {
		return nil
	}
	return &VehicleDTO{
		ID:          m.ID,
		PlateNumber: m.PlateNumber,
		Type:        m.Type,
		CapacityKG:  m.CapacityKG,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}
