package exceptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/pagination"
)

// ListFilter narrows exception listings.
type ListFilter struct {
	Status  *enums.ExceptionStatus
	Type    *enums.ExceptionType
	OrderID *uuid.UUID
}

// Repository manages exception persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, exc *models.Exception) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Exception, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Exception, error)
	Update(ctx context.Context, exc *models.Exception) error
	ExistsActiveForOrder(ctx context.Context, orderID uuid.UUID, excType enums.ExceptionType) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to exception operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, exc *models.Exception) error {
	return r.db.WithContext(ctx).Create(exc).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Exception, error) {
	var exc models.Exception
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&exc).Error; err != nil {
		return nil, err
	}
	return &exc, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Exception, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Exception
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, exc *models.Exception) error {
	return r.db.WithContext(ctx).Save(exc).Error
}

func (r *repository) ExistsActiveForOrder(ctx context.Context, orderID uuid.UUID, excType enums.ExceptionType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Exception{}).
		Where("order_id = ? AND type = ? AND status IN ?", orderID, excType,
			[]enums.ExceptionStatus{enums.ExceptionStatusOpen, enums.ExceptionStatusAcknowledged}).
		Count(&count).Error
	return count > 0, err
}
