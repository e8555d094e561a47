package routes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	"github.com/cargoflow/backend/pkg/pagination"
)

// Repository manages route persistence. FindForTenant and MarkCompleted take
// an explicit transaction handle so the order write path can participate
// without importing this package.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, route *models.Route) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Route, error)
	FindForTenant(ctx context.Context, tx *gorm.DB, tenantID, routeID uuid.UUID) (*models.Route, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Route, error)
	FindActiveForDriver(ctx context.Context, tenantID, driverID uuid.UUID, day time.Time) (*models.Route, error)
	UpdateStatus(ctx context.Context, routeID uuid.UUID, status enums.RouteStatus) error
	SetStartTime(ctx context.Context, routeID uuid.UUID, startedAt time.Time) error
	MarkCompleted(ctx context.Context, tx *gorm.DB, routeID uuid.UUID, endedAt time.Time) error
	ListPlannedForDate(ctx context.Context, day time.Time) ([]models.Route, error)
}

// ListFilter narrows route listings.
type ListFilter struct {
	Status   *enums.RouteStatus
	DriverID *uuid.UUID
	Date     *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to route operations.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, route *models.Route) error {
	return r.db.WithContext(ctx).Create(route).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Route, error) {
	var route models.Route
	if err := r.db.WithContext(ctx).
		Preload("Driver").
		Preload("Vehicle").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *repository) FindForTenant(ctx context.Context, tx *gorm.DB, tenantID, routeID uuid.UUID) (*models.Route, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	var route models.Route
	if err := conn.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, routeID).
		First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Route, error) {
	query := r.db.WithContext(ctx).
		Preload("Driver").
		Preload("Vehicle").
		Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Date != nil {
		query = query.Where("route_date = ?", filter.Date.Format("2006-01-02"))
	}
	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Route
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindActiveForDriver(ctx context.Context, tenantID, driverID uuid.UUID, day time.Time) (*models.Route, error) {
	var route models.Route
	if err := r.db.WithContext(ctx).
		Preload("Vehicle").
		Where("tenant_id = ? AND driver_id = ?", tenantID, driverID).
		Where("route_date = ?", day.Format("2006-01-02")).
		Where("status IN ?", []enums.RouteStatus{enums.RouteStatusPlanned, enums.RouteStatusInProgress}).
		Order("created_at DESC").
		First(&route).Error; err != nil {
		return nil, err
	}
	return &route, nil
}

func (r *repository) UpdateStatus(ctx context.Context, routeID uuid.UUID, status enums.RouteStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Route{}).
		Where("id = ?", routeID).
		Update("status", status).Error
}

func (r *repository) SetStartTime(ctx context.Context, routeID uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Route{}).
		Where("id = ?", routeID).
		Updates(map[string]any{
			"status":     enums.RouteStatusInProgress,
			"start_time": startedAt,
		}).Error
}

func (r *repository) MarkCompleted(ctx context.Context, tx *gorm.DB, routeID uuid.UUID, endedAt time.Time) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).
		Model(&models.Route{}).
		Where("id = ? AND status = ?", routeID, enums.RouteStatusInProgress).
		Updates(map[string]any{
			"status":   enums.RouteStatusCompleted,
			"end_time": endedAt,
		}).Error
}

func (r *repository) ListPlannedForDate(ctx context.Context, day time.Time) ([]models.Route, error) {
	var rows []models.Route
	err := r.db.WithContext(ctx).
		Preload("Driver").
		Where("route_date = ? AND status = ?", day.Format("2006-01-02"), enums.RouteStatusPlanned).
		Find(&rows).Error
	return rows, err
}
