package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/pods"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

// historyReader provides the audit trail for last-update derivation.
// Implemented by the ledger service.
type historyReader interface {
	History(ctx context.Context, tenantID, orderID uuid.UUID) ([]models.StatusHistory, error)
}

// StopView is the customer-visible slice of a stop. No coordinates, no
// internal notes.
type StopView struct {
	ID                uuid.UUID        `json:"id"`
	SequenceIndex     int              `json:"sequence_index"`
	Type              enums.StopType   `json:"type"`
	AddressLine       string           `json:"address_line"`
	City              string           `json:"city"`
	ScheduledETA      *time.Time       `json:"scheduled_eta,omitempty"`
	ActualArrivalTime *time.Time       `json:"actual_arrival_time,omitempty"`
	Status            enums.StopStatus `json:"status"`
}

// PODSummary is the delivery confirmation shown to the customer.
type PODSummary struct {
	DeliveredAt  time.Time `json:"delivered_at"`
	ReceiverName string    `json:"receiver_name"`
}

// View is the public tracking response. It never carries the customer's
// phone or email, the tenant, or the token itself.
type View struct {
	OrderID       uuid.UUID         `json:"order_id"`
	ReferenceCode string            `json:"reference_code"`
	CustomerName  string            `json:"customer_name"`
	Status        enums.OrderStatus `json:"status"`
	Stops         []StopView        `json:"stops"`
	PODSummary    *PODSummary       `json:"pod_summary,omitempty"`
	LastUpdate    time.Time         `json:"last_update"`
	DriverETA     *time.Time        `json:"driver_eta,omitempty"`
}

// Service resolves tracking tokens to the public order view.
type Service interface {
	ByToken(ctx context.Context, token string) (*View, error)
}

type service struct {
	orders  orders.Repository
	pods    pods.Repository
	history historyReader
}

// NewService builds the tracking service.
func NewService(orderRepo orders.Repository, podRepo pods.Repository, history historyReader) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if podRepo == nil {
		return nil, fmt.Errorf("pod repository required")
	}
	if history == nil {
		return nil, fmt.Errorf("history reader required")
	}
	return &service{orders: orderRepo, pods: podRepo, history: history}, nil
}

func (s *service) ByToken(ctx context.Context, token string) (*View, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking token is required")
	}
	order, err := s.orders.FindByTrackingToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracking link not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	view := &View{
		OrderID:       order.ID,
		ReferenceCode: order.ReferenceCode,
		CustomerName:  order.CustomerName,
		Status:        order.Status,
		LastUpdate:    order.UpdatedAt,
		DriverETA:     deriveETA(order),
	}
	for _, stop := range order.Stops {
		view.Stops = append(view.Stops, StopView{
			ID:                stop.ID,
			SequenceIndex:     stop.SequenceIndex,
			Type:              stop.Type,
			AddressLine:       stop.AddressLine,
			City:              stop.City,
			ScheduledETA:      stop.ScheduledETA,
			ActualArrivalTime: stop.ActualArrivalTime,
			Status:            stop.Status,
		})
	}

	if pod, err := s.pods.FindByOrderID(ctx, order.ID); err == nil {
		view.PODSummary = &PODSummary{DeliveredAt: pod.DeliveredAt, ReceiverName: pod.ReceiverName}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pod")
	}

	if entries, err := s.history.History(ctx, order.TenantID, order.ID); err == nil && len(entries) > 0 {
		latest := entries[0].CreatedAt
		for _, entry := range entries[1:] {
			if entry.CreatedAt.After(latest) {
				latest = entry.CreatedAt
			}
		}
		view.LastUpdate = latest
	}

	return view, nil
}

// deriveETA is the scheduled arrival of the first pending drop stop, once the
// order is on a route.
func deriveETA(order *models.Order) *time.Time {
	if order.AssignedRouteID == nil {
		return nil
	}
	for _, stop := range order.Stops {
		if stop.Type == enums.StopTypeDrop && stop.Status == enums.StopStatusPending {
			return stop.ScheduledETA
		}
	}
	return nil
}
