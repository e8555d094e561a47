package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/realtime"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/outbox"
	"github.com/cargoflow/backend/pkg/pagination"
)

// routeStore is the slice of route persistence the order write path needs for
// auto-completion. Implemented by the routes repository.
type routeStore interface {
	FindForTenant(ctx context.Context, tx *gorm.DB, tenantID, routeID uuid.UUID) (*models.Route, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, routeID uuid.UUID, endedAt time.Time) error
}

// Service exposes order operations. Every mutation runs as one transaction
// containing the entity change, its audit entry and its outbox event.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateOrderInput) (*models.Order, error)
	GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	History(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
	Reassign(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, orderID, targetRouteID uuid.UUID, note string) (*models.Order, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input UpdateStatusInput) (*models.Order, error)

	// AssignToRoute transitions one CREATED order onto a route inside the
	// caller's transaction. Used by route creation.
	AssignToRoute(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, routeID uuid.UUID) error

	// ApplyTransition runs one validated status change inside the caller's
	// transaction. Used by POD creation to drive DELIVERED atomically.
	ApplyTransition(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, target enums.OrderStatus, stopID *uuid.UUID, metadata map[string]any) error
}

// UpdateStatusInput is a driver-initiated transition request.
type UpdateStatusInput struct {
	OrderID  uuid.UUID
	ToStatus enums.OrderStatus
	StopID   *uuid.UUID
	Metadata map[string]any
}

type service struct {
	db        *dbpkg.Client
	repo      Repository
	ledger    ledger.Service
	outbox    *outbox.Service
	routes    routeStore
	publisher realtime.Publisher
}

// NewService builds the order service.
func NewService(db *dbpkg.Client, repo Repository, ledgerSvc ledger.Service, outboxSvc *outbox.Service, routes routeStore, publisher realtime.Publisher) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if routes == nil {
		return nil, fmt.Errorf("route store required")
	}
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &service{
		db:        db,
		repo:      repo,
		ledger:    ledgerSvc,
		outbox:    outboxSvc,
		routes:    routes,
		publisher: publisher,
	}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input CreateOrderInput) (*models.Order, error) {
	if len(input.Stops) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one stop is required")
	}
	for _, stop := range input.Stops {
		if stop.SequenceIndex < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stop sequence index must be >= 1")
		}
		if !stop.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown stop type %q", stop.Type))
		}
	}

	token, err := newTrackingToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tracking token")
	}

	order := &models.Order{
		ID:                uuid.New(),
		TenantID:          tenantID,
		ReferenceCode:     input.ReferenceCode,
		CustomerName:      input.CustomerName,
		CustomerPhone:     input.CustomerPhone,
		CustomerEmail:     input.CustomerEmail,
		Status:            enums.OrderStatusCreated,
		TrackingToken:     token,
		PickupWindowStart: input.PickupWindowStart,
		PickupWindowEnd:   input.PickupWindowEnd,
		DropWindowStart:   input.DropWindowStart,
		DropWindowEnd:     input.DropWindowEnd,
		Notes:             input.Notes,
	}
	for _, stop := range input.Stops {
		order.Stops = append(order.Stops, models.Stop{
			ID:            uuid.New(),
			OrderID:       order.ID,
			SequenceIndex: stop.SequenceIndex,
			Type:          stop.Type,
			AddressLine:   stop.AddressLine,
			City:          stop.City,
			State:         stop.State,
			PostalCode:    stop.PostalCode,
			Lat:           stop.Lat,
			Lng:           stop.Lng,
			ScheduledETA:  stop.ScheduledETA,
			Status:        enums.StopStatusPending,
			Notes:         stop.Notes,
		})
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeDuplicateReference, fmt.Sprintf("order with reference %q already exists", input.ReferenceCode))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			TenantID:    tenantID,
			OrderID:     order.ID,
			ActorUserID: actor.UserID,
			ActorType:   actor.Type,
			ToStatus:    enums.OrderStatusCreated,
		}); err != nil {
			return err
		}
		if _, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:  tenantID,
			EventType: enums.EventOrderCreated,
			Data: map[string]any{
				"order_id":       order.ID.String(),
				"reference_code": order.ReferenceCode,
			},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderUpdate(ctx, order)
	return order, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	rows, err := s.repo.List(ctx, tenantID, filter, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
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

func (s *service) History(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error) {
	if _, err := s.GetByID(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return s.ledger.History(ctx, tenantID, orderID)
}

func (s *service) Cancel(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).FindByID(ctx, tenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !IsCancellable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeNotCancellable, fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		prev := order.Status
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCancelled

		if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			TenantID:    tenantID,
			OrderID:     order.ID,
			ActorUserID: actor.UserID,
			ActorType:   actor.Type,
			FromStatus:  prev,
			ToStatus:    enums.OrderStatusCancelled,
			Metadata:    map[string]any{"reason": reason},
		}); err != nil {
			return err
		}
		if _, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			TenantID:  tenantID,
			EventType: enums.EventOrderCancelled,
			Data: map[string]any{
				"order_id": order.ID.String(),
				"reason":   reason,
			},
		}); err != nil {
			return err
		}

		// CANCELLED is terminal, so a routed order may have been the last
		// one holding its route open.
		if order.AssignedRouteID != nil {
			if err := s.maybeCompleteRoute(ctx, tx, tenantID, *order.AssignedRouteID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderUpdate(ctx, order)
	return order, nil
}

func (s *service) Reassign(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, orderID, targetRouteID uuid.UUID, note string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).FindByID(ctx, tenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only ASSIGNED orders can be reassigned")
		}
		if _, err := s.routes.FindForTenant(ctx, tx, tenantID, targetRouteID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
		}

		if err := s.repo.WithTx(tx).SetRoute(ctx, order.ID, &targetRouteID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move order to route")
		}
		order.AssignedRouteID = &targetRouteID

		// A lateral move: audited, but not a state machine transition.
		if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			TenantID:    tenantID,
			OrderID:     order.ID,
			ActorUserID: actor.UserID,
			ActorType:   actor.Type,
			FromStatus:  enums.OrderStatusAssigned,
			ToStatus:    enums.OrderStatusAssigned,
			Metadata:    map[string]any{"note": note, "target_route_id": targetRouteID.String()},
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderUpdate(ctx, order)
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, tenantID uuid.UUID, actor ledger.Actor, input UpdateStatusInput) (*models.Order, error) {
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.ToStatus))
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.repo.WithTx(tx).FindByID(ctx, tenantID, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return s.transitionInTx(ctx, tx, actor, order, input.ToStatus, input.StopID, input.Metadata)
	})
	if err != nil {
		return nil, err
	}

	s.publishOrderUpdate(ctx, order)
	return order, nil
}

func (s *service) ApplyTransition(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, target enums.OrderStatus, stopID *uuid.UUID, metadata map[string]any) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	return s.transitionInTx(ctx, tx, actor, order, target, stopID, metadata)
}

// transitionInTx applies one validated status change with its stop side
// effect, audit entry, outbox event and route-completion check.
func (s *service) transitionInTx(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, target enums.OrderStatus, stopID *uuid.UUID, metadata map[string]any) error {
	if !CanTransition(order.Status, target) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("invalid transition: %s -> %s", order.Status, target))
	}
	repo := s.repo.WithTx(tx)

	var stop *models.Stop
	if stopID != nil {
		var err error
		stop, err = repo.FindStop(ctx, order.ID, *stopID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "stop not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stop")
		}
	}

	prev := order.Status
	if err := repo.UpdateStatus(ctx, order.ID, target); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = target

	if stop != nil {
		if err := repo.CompleteStop(ctx, stop.ID, time.Now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete stop")
		}
	}

	if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		TenantID:    order.TenantID,
		OrderID:     order.ID,
		StopID:      stopID,
		ActorUserID: actor.UserID,
		ActorType:   actor.Type,
		FromStatus:  prev,
		ToStatus:    target,
		Metadata:    metadata,
	}); err != nil {
		return err
	}

	if _, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:  order.TenantID,
		EventType: enums.EventOrderStatusChanged,
		Data: map[string]any{
			"order_id":       order.ID.String(),
			"reference_code": order.ReferenceCode,
			"from_status":    prev.String(),
			"to_status":      target.String(),
		},
	}); err != nil {
		return err
	}

	if order.AssignedRouteID != nil {
		if err := s.maybeCompleteRoute(ctx, tx, order.TenantID, *order.AssignedRouteID); err != nil {
			return err
		}
	}
	return nil
}

// maybeCompleteRoute flips an IN_PROGRESS route to COMPLETED once every order
// on it is terminal. Idempotent; routes without orders never auto-complete.
func (s *service) maybeCompleteRoute(ctx context.Context, tx *gorm.DB, tenantID, routeID uuid.UUID) error {
	route, err := s.routes.FindForTenant(ctx, tx, tenantID, routeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "route not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load route")
	}
	if route.Status != enums.RouteStatusInProgress {
		return nil
	}

	repo := s.repo.WithTx(tx)
	total, err := repo.CountByRoute(ctx, routeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count route orders")
	}
	if total == 0 {
		return nil
	}
	open, err := repo.CountNonTerminalByRoute(ctx, routeID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open route orders")
	}
	if open > 0 {
		return nil
	}

	if err := s.routes.MarkCompleted(ctx, tx, routeID, time.Now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete route")
	}
	s.publisher.PublishToRoute(ctx, routeID, realtime.Message{
		Type: realtime.TypeRouteUpdated,
		Data: map[string]any{"route_id": routeID.String(), "status": enums.RouteStatusCompleted.String()},
	})
	return nil
}

func (s *service) AssignToRoute(ctx context.Context, tx *gorm.DB, actor ledger.Actor, order *models.Order, routeID uuid.UUID) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !CanTransition(order.Status, enums.OrderStatusAssigned) {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("invalid transition: %s -> %s", order.Status, enums.OrderStatusAssigned))
	}
	repo := s.repo.WithTx(tx)

	prev := order.Status
	if err := repo.SetRoute(ctx, order.ID, &routeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link order to route")
	}
	if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusAssigned); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.AssignedRouteID = &routeID
	order.Status = enums.OrderStatusAssigned

	if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		TenantID:    order.TenantID,
		OrderID:     order.ID,
		ActorUserID: actor.UserID,
		ActorType:   actor.Type,
		FromStatus:  prev,
		ToStatus:    enums.OrderStatusAssigned,
		Metadata:    map[string]any{"route_id": routeID.String()},
	}); err != nil {
		return err
	}
	if _, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		TenantID:  order.TenantID,
		EventType: enums.EventOrderStatusChanged,
		Data: map[string]any{
			"order_id":  order.ID.String(),
			"to_status": enums.OrderStatusAssigned.String(),
		},
	}); err != nil {
		return err
	}
	return nil
}

// publishOrderUpdate fans an order change out to its audiences. Failures are
// swallowed inside the publisher.
func (s *service) publishOrderUpdate(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	full := map[string]any{
		"order_id":       order.ID.String(),
		"reference_code": order.ReferenceCode,
		"status":         order.Status.String(),
		"updated_at":     order.UpdatedAt,
	}
	s.publisher.PublishToTenant(ctx, order.TenantID, realtime.Message{Type: realtime.TypeOrderUpdated, Data: full})
	if order.AssignedRouteID != nil {
		s.publisher.PublishToRoute(ctx, *order.AssignedRouteID, realtime.Message{Type: realtime.TypeOrderUpdated, Data: full})
	}
	// Public tracking subscribers get status and timestamp only.
	s.publisher.PublishToTracking(ctx, order.ID, realtime.Message{
		Type: realtime.TypeOrderUpdated,
		Data: map[string]any{
			"status":     order.Status.String(),
			"updated_at": order.UpdatedAt,
		},
	})
}
