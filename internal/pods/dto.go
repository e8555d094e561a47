package pods

import (
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
)

// PODDTO exposes proof-of-delivery data in API responses.
type PODDTO struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	ReceiverName string    `json:"receiver_name"`
	PhotoRef     string    `json:"photo_ref,omitempty"`
	SignatureRef string    `json:"signature_ref,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	DeliveredAt  time.Time `json:"delivered_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromModel maps a persisted POD into a DTO.
func FromModel(m *models.POD) *PODDTO {
	if m == nil {
		return nil
	}
	return &PODDTO{
		ID:           m.ID,
		OrderID:      m.OrderID,
		ReceiverName: m.ReceiverName,
		PhotoRef:     m.PhotoRef,
		SignatureRef: m.SignatureRef,
		Notes:        m.Notes,
		DeliveredAt:  m.DeliveredAt,
		CreatedAt:    m.CreatedAt,
	}
}
