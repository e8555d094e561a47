package tenants

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

type tenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

// Service exposes tenant operations.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	UpdateWebhookConfig(ctx context.Context, tenantID uuid.UUID, input UpdateWebhookConfigInput) (*models.Tenant, error)
}

type service struct {
	repo tenantRepository
}

// NewService builds a tenant service with the provided repository.
func NewService(repo tenantRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	return &service{repo: repo}, nil
}

// UpdateWebhookConfigInput captures the webhook settings a tenant admin may change.
type UpdateWebhookConfigInput struct {
	WebhookURL     *string
	WebhookSecret  *string
	WebhookEnabled *bool
	WebhookEvents  *[]string
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return tenant, nil
}

func (s *service) UpdateWebhookConfig(ctx context.Context, tenantID uuid.UUID, input UpdateWebhookConfigInput) (*models.Tenant, error) {
	tenant, err := s.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if input.WebhookURL != nil {
		trimmed := strings.TrimSpace(*input.WebhookURL)
		if trimmed != "" {
			parsed, err := url.Parse(trimmed)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook url must be absolute")
			}
		}
		tenant.WebhookURL = trimmed
	}
	if input.WebhookSecret != nil {
		tenant.WebhookSecret = *input.WebhookSecret
	}
	if input.WebhookEvents != nil {
		for _, eventType := range *input.WebhookEvents {
			if !enums.EventType(eventType).IsValid() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event type %q", eventType))
			}
		}
		tenant.WebhookEvents = *input.WebhookEvents
	}
	if input.WebhookEnabled != nil {
		if *input.WebhookEnabled && (tenant.WebhookURL == "" || tenant.WebhookSecret == "") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook url and secret are required to enable delivery")
		}
		tenant.WebhookEnabled = *input.WebhookEnabled
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tenant")
	}
	return tenant, nil
}
