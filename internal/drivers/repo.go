package drivers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/pagination"
)

// Repository manages driver persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, driver *models.Driver) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Driver, error)
	FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Driver, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Driver, error)
	Update(ctx context.Context, driver *models.Driver) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to driver operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Create(driver).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Driver, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Driver
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Save(driver).Error
}

func (r *repository) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", driverID).
		Updates(map[string]any{
			"current_lat":         lat,
			"current_lng":         lng,
			"location_updated_at": at,
		}).Error
}
