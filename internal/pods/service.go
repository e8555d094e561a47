package pods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/orders"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

// orderTransitioner drives the DELIVERED transition inside the POD
// transaction. Implemented by the orders service.
type orderTransitioner interface {
	ApplyTransition(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, target enums.OrderStatus, stopID *uuid.UUID, metadata map[string]any) error
}

// CreateInput captures a proof of delivery upload. Photo and signature are
// storage references resolved by the caller.
type CreateInput struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required"`
	ReceiverName string    `json:"receiver_name" validate:"required"`
	PhotoRef     string    `json:"photo_ref"`
	SignatureRef string    `json:"signature_ref"`
	Notes        string    `json:"notes"`
}

// Service creates and reads proofs of delivery.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateInput) (*models.POD, error)
	GetByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.POD, error)
}

type service struct {
	db           *dbpkg.Client
	repo         Repository
	orders       orders.Repository
	transitioner orderTransitioner
}

// NewService builds the POD service.
func NewService(db *dbpkg.Client, repo Repository, orderRepo orders.Repository, transitioner orderTransitioner) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("pod repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if transitioner == nil {
		return nil, fmt.Errorf("order transitioner required")
	}
	return &service{
		db:           db,
		repo:         repo,
		orders:       orderRepo,
		transitioner: transitioner,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateInput) (*models.POD, error) {
	if input.ReceiverName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver name is required")
	}

	pod := &models.POD{
		ID:           uuid.New(),
		OrderID:      input.OrderID,
		ReceiverName: input.ReceiverName,
		PhotoRef:     input.PhotoRef,
		SignatureRef: input.SignatureRef,
		Notes:        input.Notes,
		DeliveredAt:  time.Now(),
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.WithTx(tx).FindByID(ctx, tenantID, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusInTransit {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order must be IN_TRANSIT to upload POD")
		}
		exists, err := s.repo.WithTx(tx).ExistsForOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing pod")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "POD already exists for this order")
		}

		if err := s.repo.WithTx(tx).Create(ctx, pod); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pod")
		}

		return s.transitioner.ApplyTransition(ctx, tx, actor, order, enums.OrderStatusDelivered, nil, map[string]any{
			"pod_id":        pod.ID.String(),
			"receiver_name": input.ReceiverName,
		})
	})
	if err != nil {
		return nil, err
	}
	return pod, nil
}

func (s *service) GetByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.POD, error) {
	// Resolve through the order so tenancy is enforced.
	if _, err := s.orders.FindByID(ctx, tenantID, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	pod, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no POD for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pod")
	}
	return pod, nil
}
