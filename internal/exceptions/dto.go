package exceptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// ExceptionDTO exposes exception data in API responses.
type ExceptionDTO struct {
	ID             uuid.UUID             `json:"id"`
	OrderID        uuid.UUID             `json:"order_id"`
	Type           enums.ExceptionType   `json:"type"`
	Status         enums.ExceptionStatus `json:"status"`
	Notes          string                `json:"notes,omitempty"`
	Resolution     string                `json:"resolution,omitempty"`
	CreatedByID    *uuid.UUID            `json:"created_by_id,omitempty"`
	AcknowledgedAt *time.Time            `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// FromModel maps a persisted exception into a DTO.
func FromModel(m *models.Exception) *ExceptionDTO {
	if m == nil {
		return nil
	}
	return &ExceptionDTO{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Type:           m.Type,
		Status:         m.Status,
		Notes:          m.Notes,
		Resolution:     m.Resolution,
		CreatedByID:    m.CreatedByID,
		AcknowledgedAt: m.AcknowledgedAt,
		ResolvedAt:     m.ResolvedAt,
		CreatedAt:      m.CreatedAt,
	}
}
