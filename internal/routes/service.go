package routes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/realtime"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/pagination"
)

// orderAssigner moves a CREATED order onto a route inside the caller's
// transaction. Implemented by the orders service.
type orderAssigner interface {
	AssignToRoute(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, routeID uuid.UUID) error
}

// driverStore and vehicleStore resolve assignment targets. Implemented by the
// drivers and vehicles repositories.
type driverStore interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Driver, error)
}

type vehicleStore interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Vehicle, error)
}

// Service exposes route planning and lifecycle operations.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateRouteInput) (*models.Route, error)
	GetByID(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Route, string, error)
	Orders(ctx context.Context, tenantID, routeID uuid.UUID) ([]models.Order, error)
	TodayForDriver(ctx context.Context, tenantID, driverID uuid.UUID) (*models.Route, error)
	Start(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error)
	Cancel(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error)
	ReorderStops(ctx context.Context, tenantID, routeID uuid.UUID, stopIDs []uuid.UUID) error
	OptimizeStops(ctx context.Context, tenantID, routeID uuid.UUID) error
}

type service struct {
	db        *dbpkg.Client
	repo      Repository
	orders    orders.Repository
	assigner  orderAssigner
	drivers   driverStore
	vehicles  vehicleStore
	publisher realtime.Publisher
}

// NewService builds the route service.
func NewService(db *dbpkg.Client, repo Repository, orderRepo orders.Repository, assigner orderAssigner, drivers driverStore, vehicles vehicleStore, publisher realtime.Publisher) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("route repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if assigner == nil {
		return nil, fmt.Errorf("order assigner required")
	}
	if drivers == nil {
		return nil, fmt.Errorf("driver store required")
	}
	if vehicles == nil {
		return nil, fmt.Errorf("vehicle store required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{
		db:        db,
		repo:      repo,
		orders:    orderRepo,
		assigner:  assigner,
		drivers:   drivers,
		vehicles:  vehicles,
		publisher: publisher,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateRouteInput) (*models.Route, error) {
	if len(input.OrderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order is required")
	}

	driver, err := s.drivers.FindByID(ctx, tenantID, input.DriverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver")
	}
	if !driver.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver is inactive")
	}
	vehicle, err := s.vehicles.FindByID(ctx, tenantID, input.VehicleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
	}
	if !vehicle.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle is inactive")
	}

	route := &models.Route{
		ID:        uuid.New(),
		TenantID:  tenantID,
		RouteDate: input.RouteDate,
		DriverID:  driver.ID,
		VehicleID: vehicle.ID,
		Status:    enums.RouteStatusPlanned,
		Notes:     input.Notes,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, route); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create route")
		}

		assignable, err := s.orders.WithTx(tx).ListByIDs(ctx, tenantID, input.OrderIDs, enums.OrderStatusCreated)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
		}
		if len(assignable) != len(input.OrderIDs) {
			return pkgerrors.New(pkgerrors.CodeValidation, "one or more orders not found or not in CREATED status")
		}
		for i := range assignable {
			if err := s.assigner.AssignToRoute(ctx, tx, actor, &assignable[i], route.ID); err != nil {
				return err
			}
		}

		if input.Optimize {
			return s.resequenceStops(ctx, tx, tenantID, route.ID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishRouteUpdate(ctx, route)
	return route, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error) {
	route, err := s.repo.FindByID(ctx, tenantID, routeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	return route, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Route, string, error) {
	rows, err := s.repo.List(ctx, tenantID, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list routes")
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

func (s *service) Orders(ctx context.Context, tenantID, routeID uuid.UUID) ([]models.Order, error) {
	if _, err := s.GetByID(ctx, tenantID, routeID); err != nil {
		return nil, err
	}
	rows, err := s.orders.ListByRoute(ctx, tenantID, routeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list route orders")
	}
	return rows, nil
}

func (s *service) TodayForDriver(ctx context.Context, tenantID, driverID uuid.UUID) (*models.Route, error) {
	route, err := s.repo.FindActiveForDriver(ctx, tenantID, driverID, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active route for today")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load driver route")
	}
	return route, nil
}

func (s *service) Start(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error) {
	var route *models.Route
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		route, err = s.repo.FindForTenant(ctx, tx, tenantID, routeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}
		if route.Status != enums.RouteStatusPlanned {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "route must be in PLANNED status to start")
		}
		now := time.Now()
		if err := s.repo.WithTx(tx).SetStartTime(ctx, routeID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start route")
		}
		route.Status = enums.RouteStatusInProgress
		route.StartTime = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishRouteUpdate(ctx, route)
	return route, nil
}

func (s *service) Cancel(ctx context.Context, tenantID, routeID uuid.UUID) (*models.Route, error) {
	var route *models.Route
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		route, err = s.repo.FindForTenant(ctx, tx, tenantID, routeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}
		if route.Status != enums.RouteStatusPlanned && route.Status != enums.RouteStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("cannot cancel route in status %s", route.Status))
		}

		// Orders still riding the route must be cancelled or reassigned first.
		open, err := s.orders.WithTx(tx).CountNonTerminalByRoute(ctx, routeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count route orders")
		}
		if open > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "route still has active orders")
		}

		if err := s.repo.WithTx(tx).UpdateStatus(ctx, routeID, enums.RouteStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel route")
		}
		route.Status = enums.RouteStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishRouteUpdate(ctx, route)
	return route, nil
}

func (s *service) ReorderStops(ctx context.Context, tenantID, routeID uuid.UUID, stopIDs []uuid.UUID) error {
	if len(stopIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stop order is required")
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindForTenant(ctx, tx, tenantID, routeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}
		return s.resequenceStops(ctx, tx, tenantID, routeID, stopIDs)
	})
	if err != nil {
		return err
	}
	s.publisher.PublishToRoute(ctx, routeID, realtime.Message{
		Type: realtime.TypeRouteUpdated,
		Data: map[string]any{"route_id": routeID.String(), "stops_reordered": true},
	})
	return nil
}

func (s *service) OptimizeStops(ctx context.Context, tenantID, routeID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindForTenant(ctx, tx, tenantID, routeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}
		return s.resequenceStops(ctx, tx, tenantID, routeID, nil)
	})
	if err != nil {
		return err
	}
	s.publisher.PublishToRoute(ctx, routeID, realtime.Message{
		Type: realtime.TypeRouteUpdated,
		Data: map[string]any{"route_id": routeID.String(), "stops_reordered": true},
	})
	return nil
}

// resequenceStops rewrites sequence indexes across every stop on the route.
// With an explicit stopIDs list each id must belong to the route; without one
// the nearest-neighbor heuristic decides the order.
func (s *service) resequenceStops(ctx context.Context, tx *gorm.DB, tenantID, routeID uuid.UUID, stopIDs []uuid.UUID) error {
	orderRepo := s.orders.WithTx(tx)
	routeOrders, err := orderRepo.ListByRoute(ctx, tenantID, routeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route orders")
	}
	var stops []models.Stop
	for _, order := range routeOrders {
		stops = append(stops, order.Stops...)
	}

	var ordered []models.Stop
	if stopIDs == nil {
		ordered = nearestNeighborOrder(stops)
	} else {
		byID := make(map[uuid.UUID]models.Stop, len(stops))
		for _, stop := range stops {
			byID[stop.ID] = stop
		}
		for _, id := range stopIDs {
			stop, ok := byID[id]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stop %s is not on this route", id))
			}
			ordered = append(ordered, stop)
		}
	}

	for idx, stop := range ordered {
		if err := orderRepo.UpdateStopSequence(ctx, stop.ID, idx+1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stop sequence")
		}
	}
	return nil
}

func (s *service) publishRouteUpdate(ctx context.Context, route *models.Route) {
	if route == nil {
		return
	}
	msg := realtime.Message{
		Type: realtime.TypeRouteUpdated,
		Data: map[string]any{
			"route_id": route.ID.String(),
			"status":   route.Status.String(),
		},
	}
	s.publisher.PublishToTenant(ctx, route.TenantID, msg)
	s.publisher.PublishToRoute(ctx, route.ID, msg)
}
