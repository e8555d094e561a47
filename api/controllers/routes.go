package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/api/validators"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/routes"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

type routeListResponse struct {
	Routes     []routes.RouteDTO `json:"routes"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// CreateRoute plans a route and pulls the requested CREATED orders onto it.
func CreateRoute(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input routes.CreateRouteInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		route, err := svc.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), opsActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, routes.FromModel(route))
	}
}

// GetRoute returns one route with driver and vehicle summaries.
func GetRoute(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		route, err := svc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, routes.FromModel(route))
	}
}

// ListRoutes returns a cursor page of routes with optional status, driver and
// date filters.
func ListRoutes(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter routes.ListFilter
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRouteStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}
		driverID, err := validators.ParseQueryUUID(r, "driver_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.DriverID = driverID
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			day, err := time.Parse("2006-01-02", raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD"))
				return
			}
			filter.Date = &day
		}

		rows, nextCursor, err := svc.List(r.Context(), middleware.TenantIDFromContext(r.Context()), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := routeListResponse{Routes: make([]routes.RouteDTO, 0, len(rows)), NextCursor: nextCursor}
		for i := range rows {
			resp.Routes = append(resp.Routes, routes.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// RouteOrders returns the orders currently assigned to a route.
func RouteOrders(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		rows, err := svc.Orders(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]*orders.OrderDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, orders.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": dtos})
	}
}

// StartRoute moves a PLANNED route into IN_PROGRESS.
func StartRoute(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		route, err := svc.Start(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, routes.FromModel(route))
	}
}

// CancelRoute abandons a route that still has no active orders on it.
func CancelRoute(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		route, err := svc.Cancel(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, routes.FromModel(route))
	}
}

type reorderStopsRequest struct {
	StopIDs []uuid.UUID `json:"stop_ids" validate:"required,min=1"`
}

// ReorderRouteStops applies a manual stop sequence across the route's orders.
func ReorderRouteStops(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		var req reorderStopsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReorderStops(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID, req.StopIDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reordered"})
	}
}

// OptimizeRouteStops resequences the route's stops by nearest neighbor.
func OptimizeRouteStops(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}

		if err := svc.OptimizeStops(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "optimized"})
	}
}

// DriverTodayRoute returns the authenticated driver's active route for today.
func DriverTodayRoute(svc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := middleware.DriverIDFromContext(r.Context())
		if driverID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no driver profile linked"))
			return
		}

		route, err := svc.TodayForDriver(r.Context(), middleware.TenantIDFromContext(r.Context()), *driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, routes.FromModel(route))
	}
}
