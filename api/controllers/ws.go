package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/api/responses"
	"github.com/cargoflow/backend/internal/realtime"
	"github.com/cargoflow/backend/internal/routes"
	"github.com/cargoflow/backend/internal/tracking"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/logger"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSOps streams tenant-wide events to an ops dashboard connection.
func WSOps(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := middleware.TenantIDFromContext(r.Context())
		serveChannel(w, r, hub, realtime.OpsChannel(tenantID), logg)
	}
}

// WSRoute streams events for one route. The route must belong to the caller's
// tenant.
func WSRoute(hub *realtime.Hub, routeSvc routes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routeID, ok := pathUUID(chi.URLParam(r, "routeID"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid route id"))
			return
		}
		if _, err := routeSvc.GetByID(r.Context(), middleware.TenantIDFromContext(r.Context()), routeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveChannel(w, r, hub, realtime.RouteChannel(routeID), logg)
	}
}

// WSTracking streams public status updates for one tracking token.
func WSTracking(hub *realtime.Hub, trackingSvc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(chi.URLParam(r, "token"))
		view, err := trackingSvc.ByToken(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		serveChannel(w, r, hub, realtime.TrackingChannel(view.OrderID), logg)
	}
}

func serveChannel(w http.ResponseWriter, r *http.Request, hub *realtime.Hub, channel string, logg *logger.Logger) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	client := realtime.NewClient(hub, conn, channel, logg)
	if err := hub.Register(r.Context(), client); err != nil {
		if logg != nil {
			logg.Error(r.Context(), "websocket channel subscribe failed", err)
		}
		conn.Close()
		return
	}
	client.Start()
}
