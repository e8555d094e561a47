package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
)

// Repository manages persistence for the order audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StatusHistory) error
	ListByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit trail repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByOrderID(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
