package exceptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/realtime"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/outbox"
	"github.com/cargoflow/backend/pkg/pagination"
)

// CreateInput raises an operational exception against an order.
type CreateInput struct {
	OrderID     uuid.UUID           `json:"order_id" validate:"required"`
	Type        enums.ExceptionType `json:"type" validate:"required"`
	Notes       string              `json:"notes"`
	CreatedByID *uuid.UUID          `json:"-"`
}

// Service manages the exception lifecycle: raised OPEN, acknowledged, resolved.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Exception, error)
	GetByID(ctx context.Context, tenantID, excID uuid.UUID) (*models.Exception, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Exception, string, error)
	Acknowledge(ctx context.Context, tenantID, excID uuid.UUID, note string) (*models.Exception, error)
	Resolve(ctx context.Context, tenantID, excID uuid.UUID, resolution string) (*models.Exception, error)
}

type service struct {
	db        *dbpkg.Client
	repo      Repository
	orders    orders.Repository
	outbox    *outbox.Service
	publisher realtime.Publisher
}

// NewService builds the exception service.
func NewService(db *dbpkg.Client, repo Repository, orderRepo orders.Repository, outboxSvc *outbox.Service, publisher realtime.Publisher) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("exception repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{
		db:        db,
		repo:      repo,
		orders:    orderRepo,
		outbox:    outboxSvc,
		publisher: publisher,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Exception, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown exception type %q", input.Type))
	}

	exc := &models.Exception{
		ID:          uuid.New(),
		TenantID:    tenantID,
		OrderID:     input.OrderID,
		Type:        input.Type,
		Status:      enums.ExceptionStatusOpen,
		Notes:       input.Notes,
		CreatedByID: input.CreatedByID,
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.orders.WithTx(tx).FindByID(ctx, tenantID, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := s.repo.WithTx(tx).Create(ctx, exc); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exception")
		}
		if _, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:  tenantID,
			EventType: enums.EventExceptionRaised,
			Data: map[string]any{
				"exception_id": exc.ID.String(),
				"order_id":     input.OrderID.String(),
				"type":         string(input.Type),
			},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishToTenant(ctx, tenantID, realtime.Message{
		Type: realtime.TypeOrderUpdated,
		Data: map[string]any{
			"order_id":       order.ID.String(),
			"reference_code": order.ReferenceCode,
			"exception_id":   exc.ID.String(),
			"exception_type": string(exc.Type),
		},
	})
	return exc, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, excID uuid.UUID) (*models.Exception, error) {
	exc, err := s.repo.FindByID(ctx, tenantID, excID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exception not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exception")
	}
	return exc, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Exception, string, error) {
	rows, err := s.repo.List(ctx, tenantID, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exceptions")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (s *service) Acknowledge(ctx context.Context, tenantID, excID uuid.UUID, note string) (*models.Exception, error) {
	exc, err := s.GetByID(ctx, tenantID, excID)
	if err != nil {
		return nil, err
	}
	if exc.Status != enums.ExceptionStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "exception is not OPEN")
	}

	now := time.Now()
	exc.Status = enums.ExceptionStatusAcknowledged
	exc.Notes = strings.TrimSpace(exc.Notes + "\nACK: " + note)
	exc.AcknowledgedAt = &now
	if err := s.repo.Update(ctx, exc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acknowledge exception")
	}
	return exc, nil
}

// Resolve closes the exception from any status; skipping the acknowledge step
// is allowed.
func (s *service) Resolve(ctx context.Context, tenantID, excID uuid.UUID, resolution string) (*models.Exception, error) {
	exc, err := s.GetByID(ctx, tenantID, excID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	exc.Status = enums.ExceptionStatusResolved
	exc.Resolution = resolution
	exc.ResolvedAt = &now
	if err := s.repo.Update(ctx, exc); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve exception")
	}
	return exc, nil
}
