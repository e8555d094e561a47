package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type orderListResponse struct {
	Orders     []*orders.OrderDTO `json:"orders"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// CreateOrder registers a new order with its stops.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), opsActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.FromModel(order))
	}
}

// GetOrder returns one order with its stops.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}

// ListOrders returns a cursor page of orders, optionally filtered by status
// and route.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter orders.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		routeID, err := validators.ParseQueryUUID(r, "route_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.RouteID = routeID

		rows, nextCursor, err := svc.List(r.Context(), middleware.TenantIDFromContext(r.Context()), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{Orders: make([]*orders.OrderDTO, 0, len(rows)), NextCursor: nextCursor}
		for i := range rows {
			resp.Orders = append(resp.Orders, orders.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// OrderHistory returns the order's audit trail, oldest first.
func OrderHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		entries, err := svc.History(r.Context(), middleware.TenantIDFromContext(r.Context()), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"history": orders.HistoryFromModel(entries)})
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CancelOrder cancels an order that has not yet left for delivery.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), middleware.TenantIDFromContext(r.Context()), opsActorFromContext(r.Context()), orderID, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}

type reassignOrderRequest struct {
	TargetRouteID uuid.UUID `json:"target_route_id" validate:"required"`
	Note          string    `json:"note"`
}

// ReassignOrder moves an ASSIGNED order onto a different route.
func ReassignOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req reassignOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Reassign(r.Context(), middleware.TenantIDFromContext(r.Context()), opsActorFromContext(r.Context()), orderID, req.TargetRouteID, req.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}

type updateOrderStatusRequest struct {
	ToStatus string     `json:"to_status" validate:"required"`
	StopID   *uuid.UUID `json:"stop_id"`
}

// UpdateOrderStatus applies a driver-reported transition to an order.
func UpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := pathUUID(chi.URLParam(r, "orderID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toStatus, err := enums.ParseOrderStatus(req.ToStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), middleware.TenantIDFromContext(r.Context()), driverActorFromContext(r.Context()), orders.UpdateStatusInput{
			OrderID:  orderID,
			ToStatus: toStatus,
			StopID:   req.StopID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.FromModel(order))
	}
}
