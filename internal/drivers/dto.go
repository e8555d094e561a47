package drivers

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
)

// DriverDTO exposes driver data in API responses.
type DriverDTO struct {
	ID                uuid.UUID  `json:"id"`
	UserID            *uuid.UUID `json:"user_id,omitempty"`
	Name              string     `json:"name"`
	Phone             string     `json:"phone"`
	IsActive          bool       `json:"is_active"`
	CurrentLat        *float64   `json:"current_lat,omitempty"`
	CurrentLng        *float64   `json:"current_lng,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FromModel maps a persisted driver into a DTO.
func FromModel(m *models.Driver) *DriverDTO {
	if m == nil {
		return nil
	}
	return &DriverDTO{
		ID:                m.ID,
		UserID:            m.UserID,
		Name:              m.Name,
		Phone:             m.Phone,
		IsActive:          m.IsActive,
		CurrentLat:        m.CurrentLat,
		CurrentLng:        m.CurrentLng,
		LocationUpdatedAt: m.LocationUpdatedAt,
		CreatedAt:         m.CreatedAt,
	}
}
