package controllers

import (
	"net/http"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/tenants"
	"github.com/cargoflow/backend/pkg/logger"
)

// GetTenant returns the caller's tenant profile and webhook settings.
func GetTenant(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenants.FromModel(tenant))
	}
}

type updateWebhookConfigRequest struct {
	WebhookURL     *string   `json:"webhook_url" validate:"omitempty,url"`
	WebhookSecret  *string   `json:"webhook_secret"`
	WebhookEnabled *bool     `json:"webhook_enabled"`
	WebhookEvents  *[]string `json:"webhook_events"`
}

// UpdateWebhookConfig changes where and whether outbox events are delivered.
func UpdateWebhookConfig(svc tenants.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateWebhookConfigRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tenant, err := svc.UpdateWebhookConfig(r.Context(), middleware.TenantIDFromContext(r.Context()), tenants.UpdateWebhookConfigInput{
			WebhookURL:     req.WebhookURL,
			WebhookSecret:  req.WebhookSecret,
			WebhookEnabled: req.WebhookEnabled,
			WebhookEvents:  req.WebhookEvents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenants.FromModel(tenant))
	}
}
