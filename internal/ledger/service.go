package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// Service records the append-only audit trail of order status changes. Entries
// are never updated or deleted.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordEntryInput) (*models.StatusHistory, error)
	History(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error)
}

type service struct {
	repo Repository
}

// RecordEntryInput captures the immutable data an audit entry requires. An
// empty FromStatus marks the creation entry of a new order.
type RecordEntryInput struct {
	TenantID    uuid.UUID
	OrderID     uuid.UUID
	StopID      *uuid.UUID
	ActorUserID *uuid.UUID
	ActorType   enums.ActorType
	FromStatus  enums.OrderStatus
	ToStatus    enums.OrderStatus
	Metadata    map[string]any
}

// NewService wires an audit trail service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.StatusHistory, error) {
	if input.TenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !input.ActorType.IsValid() {
		return nil, fmt.Errorf("invalid actor type %q", input.ActorType)
	}
	if !input.ToStatus.IsValid() {
		return nil, fmt.Errorf("invalid target status %q", input.ToStatus)
	}
	if input.FromStatus != "" && !input.FromStatus.IsValid() {
		return nil, fmt.Errorf("invalid source status %q", input.FromStatus)
	}

	entry := &models.StatusHistory{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		OrderID:     input.OrderID,
		StopID:      input.StopID,
		ActorUserID: input.ActorUserID,
		ActorType:   input.ActorType,
		FromStatus:  input.FromStatus,
		ToStatus:    input.ToStatus,
		Metadata:    input.Metadata,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant id is required")
	}
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, tenantID, orderID)
}
