package pods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
)

// Repository manages proof of delivery rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pod *models.POD) error
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.POD, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to POD operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pod *models.POD) error {
	return r.db.WithContext(ctx).Create(pod).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.POD, error) {
	var pod models.POD
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&pod).Error; err != nil {
		return nil, err
	}
	return &pod, nil
}

func (r *repository) ExistsForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.POD{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}
