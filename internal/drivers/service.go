package drivers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/realtime"
	"github.com/cargoflow/backend/pkg/db/models"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/pagination"
)

// activeRouteFinder resolves the driver's current route so location updates
// reach its realtime channel. Implemented by the routes repository.
type activeRouteFinder interface {
	FindActiveForDriver(ctx context.Context, tenantID, driverID uuid.UUID, day time.Time) (*models.Route, error)
}

// CreateInput registers a new driver; UserID links the login account when a
// driver app credential exists.
type CreateInput struct {
	Name   string     `json:"name" validate:"required"`
	Phone  string     `json:"phone" validate:"required"`
	UserID *uuid.UUID `json:"-"`
}

// UpdateInput mutates driver master data.
type UpdateInput struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

// LocationInput is a GPS ping from the driver app.
type LocationInput struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Service manages drivers and their live location.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Driver, error)
	GetByID(ctx context.Context, tenantID, driverID uuid.UUID) (*models.Driver, error)
	GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Driver, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Driver, string, error)
	Update(ctx context.Context, tenantID, driverID uuid.UUID, input UpdateInput) (*models.Driver, error)
	UpdateLocation(ctx context.Context, tenantID, driverID uuid.UUID, input LocationInput) (*models.Driver, error)
}

type service struct {
	repo      Repository
	routes    activeRouteFinder
	publisher realtime.Publisher
}

// NewService builds the driver service.
func NewService(repo Repository, routes activeRouteFinder, publisher realtime.Publisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("driver repository required")
	}
	if routes == nil {
		return nil, fmt.Errorf("route finder required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{repo: repo, routes: routes, publisher: publisher}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateInput) (*models.Driver, error) {
	if input.Name == "" || input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver name and phone are required")
	}
	driver := &models.Driver{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   input.UserID,
		Name:     input.Name,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, driver); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create driver")
	}
	return driver, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, driverID uuid.UUID) (*models.Driver, error) {
	driver, err := s.repo.FindByID(ctx, tenantID, driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	return driver, nil
}

func (s *service) GetByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*models.Driver, error) {
	driver, err := s.repo.FindByUserID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	return driver, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool, params pagination.Params) ([]models.Driver, string, error) {
	rows, err := s.repo.List(ctx, tenantID, activeOnly, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list drivers")
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

func (s *service) Update(ctx context.Context, tenantID, driverID uuid.UUID, input UpdateInput) (*models.Driver, error) {
	driver, err := s.GetByID(ctx, tenantID, driverID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		driver.Name = *input.Name
	}
	if input.Phone != nil {
		driver.Phone = *input.Phone
	}
	if input.IsActive != nil {
		driver.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, driver); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update driver")
	}
	return driver, nil
}

// UpdateLocation persists the ping synchronously, then fans it out to the ops
// audience and, when the driver is on a route today, to that route's channel.
func (s *service) UpdateLocation(ctx context.Context, tenantID, driverID uuid.UUID, input LocationInput) (*models.Driver, error) {
	driver, err := s.GetByID(ctx, tenantID, driverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.UpdateLocation(ctx, driverID, input.Lat, input.Lng, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update driver location")
	}
	driver.CurrentLat = &input.Lat
	driver.CurrentLng = &input.Lng
	driver.LocationUpdatedAt = &now

	msg := realtime.Message{
		Type: realtime.TypeDriverLocation,
		Data: map[string]any{
			"driver_id":  driverID.String(),
			"lat":        input.Lat,
			"lng":        input.Lng,
			"updated_at": now,
		},
	}
	s.publisher.PublishToTenant(ctx, tenantID, msg)
	if route, err := s.routes.FindActiveForDriver(ctx, tenantID, driverID, now); err == nil {
		s.publisher.PublishToRoute(ctx, route.ID, msg)
	}
	return driver, nil
}
