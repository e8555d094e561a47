package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/pagination"
)

// Repository manages order and stop persistence. All lookups are tenant
// scoped; rows outside the caller's tenant behave as absent.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	FindByTrackingToken(ctx context.Context, token string) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, error)
	ListByRoute(ctx context.Context, tenantID, routeID uuid.UUID) ([]models.Order, error)
	ListByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, status enums.OrderStatus) ([]models.Order, error)
	ListOverdueInTransit(ctx context.Context, now time.Time) ([]models.Order, error)
	CountNonTerminalByRoute(ctx context.Context, routeID uuid.UUID) (int64, error)
	CountByRoute(ctx context.Context, routeID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	SetRoute(ctx context.Context, orderID uuid.UUID, routeID *uuid.UUID) error
	FindStop(ctx context.Context, orderID, stopID uuid.UUID) (*models.Stop, error)
	CompleteStop(ctx context.Context, stopID uuid.UUID, arrivedAt time.Time) error
	UpdateStopSequence(ctx context.Context, stopID uuid.UUID, sequenceIndex int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to order operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTrackingToken(ctx context.Context, token string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		Where("tracking_token = ?", token).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.RouteID != nil {
		query = query.Where("assigned_route_id = ?", *filter.RouteID)
	}
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByRoute(ctx context.Context, tenantID, routeID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		Where("tenant_id = ? AND assigned_route_id = ?", tenantID, routeID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, status enums.OrderStatus) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_index ASC")
		}).
		Where("tenant_id = ? AND id IN ? AND status = ?", tenantID, ids, status).
		Find(&rows).Error
	return rows, err
}

// ListOverdueInTransit scans across tenants for delay detection.
func (r *repository) ListOverdueInTransit(ctx context.Context, now time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND drop_window_end IS NOT NULL AND drop_window_end < ?", enums.OrderStatusInTransit, now).
		Order("drop_window_end ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountNonTerminalByRoute(ctx context.Context, routeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("assigned_route_id = ?", routeID).
		Where("status NOT IN ?", []enums.OrderStatus{
			enums.OrderStatusDelivered,
			enums.OrderStatusFailed,
			enums.OrderStatusCancelled,
		}).
		Count(&count).Error
	return count, err
}

func (r *repository) CountByRoute(ctx context.Context, routeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("assigned_route_id = ?", routeID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) SetRoute(ctx context.Context, orderID uuid.UUID, routeID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("assigned_route_id", routeID).Error
}

func (r *repository) FindStop(ctx context.Context, orderID, stopID uuid.UUID) (*models.Stop, error) {
	var stop models.Stop
	if err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", stopID, orderID).
		First(&stop).Error; err != nil {
		return nil, err
	}
	return &stop, nil
}

func (r *repository) CompleteStop(ctx context.Context, stopID uuid.UUID, arrivedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Stop{}).
		Where("id = ?", stopID).
		Updates(map[string]any{
			"status":              enums.StopStatusCompleted,
			"actual_arrival_time": arrivedAt,
		}).Error
}

func (r *repository) UpdateStopSequence(ctx context.Context, stopID uuid.UUID, sequenceIndex int) error {
	return r.db.WithContext(ctx).
		Model(&models.Stop{}).
		Where("id = ?", stopID).
		Update("sequence_index", sequenceIndex).Error
}
