package tenants

import (
	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
)

// WebhookConfigDTO exposes the delivery settings without the signing secret.
type WebhookConfigDTO struct {
	WebhookURL     string   `json:"webhook_url"`
	WebhookEnabled bool     `json:"webhook_enabled"`
	WebhookEvents  []string `json:"webhook_events,omitempty"`
	HasSecret      bool     `json:"has_secret"`
}

// TenantDTO exposes tenant data in API responses.
type TenantDTO struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Slug     string           `json:"slug"`
	IsActive bool             `json:"is_active"`
	Webhook  WebhookConfigDTO `json:"webhook"`
}

// FromModel maps a persisted tenant into a DTO.
func FromModel(m *models.Tenant) *TenantDTO {
	if m == nil {
		return nil
	}
	return &TenantDTO{
		ID:       m.ID,
		Name:     m.Name,
		Slug:     m.Slug,
		IsActive: m.IsActive,
		Webhook: WebhookConfigDTO{
			WebhookURL:     m.WebhookURL,
			WebhookEnabled: m.WebhookEnabled,
			WebhookEvents:  m.WebhookEvents,
			HasSecret:      m.WebhookSecret != "",
		},
	}
}
