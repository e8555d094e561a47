package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cargoflow/backend/api/controllers"
	"github.com/cargoflow/backend/api/middleware"
	"github.com/cargoflow/backend/internal/drivers"
	"github.com/cargoflow/backend/internal/exceptions"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/pods"
	"github.com/cargoflow/backend/internal/realtime"
	routesvc "github.com/cargoflow/backend/internal/routes"
	"github.com/cargoflow/backend/internal/tenants"
	"github.com/cargoflow/backend/internal/tracking"
	"github.com/cargoflow/backend/internal/users"
	"github.com/cargoflow/backend/internal/vehicles"
	"github.com/cargoflow/backend/pkg/config"
	"github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/logger"
	"github.com/cargoflow/backend/pkg/redis"
)

// Services bundles everything the router wires into controllers.
type Services struct {
	Users      users.Service
	Tenants    tenants.Service
	Orders     orders.Service
	Routes     routesvc.Service
	Drivers    drivers.Service
	Vehicles   vehicles.Service
	PODs       pods.Service
	Exceptions exceptions.Service
	Tracking   tracking.Service
	Hub        *realtime.Hub
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewRateLimitPolicy("login", cfg.Tracking.RateWindow, 10)
	trackingPolicy := middleware.NewRateLimitPolicy("tracking", cfg.Tracking.RateWindow, cfg.Tracking.RateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Users, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthMe(svcs.Users, logg))
	})

	// Public tracking surface. Token is the only credential.
	r.Route("/api/v1/track", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(trackingPolicy, redisClient, logg))
		r.Get("/{token}", controllers.TrackOrder(svcs.Tracking, logg))
		r.Get("/{token}/ws", controllers.WSTracking(svcs.Hub, svcs.Tracking, logg))
	})

	r.Route("/api/v1/ops", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireOps(logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(svcs.Orders, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
			r.Get("/{orderID}/history", controllers.OrderHistory(svcs.Orders, logg))
			r.Get("/{orderID}/pod", controllers.GetPODByOrder(svcs.PODs, logg))
			r.Post("/{orderID}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderID}/reassign", controllers.ReassignOrder(svcs.Orders, logg))
		})

		r.Route("/routes", func(r chi.Router) {
			r.Post("/", controllers.CreateRoute(svcs.Routes, logg))
			r.Get("/", controllers.ListRoutes(svcs.Routes, logg))
			r.Get("/{routeID}", controllers.GetRoute(svcs.Routes, logg))
			r.Get("/{routeID}/orders", controllers.RouteOrders(svcs.Routes, logg))
			r.Post("/{routeID}/start", controllers.StartRoute(svcs.Routes, logg))
			r.Post("/{routeID}/cancel", controllers.CancelRoute(svcs.Routes, logg))
			r.Post("/{routeID}/reorder", controllers.ReorderRouteStops(svcs.Routes, logg))
			r.Post("/{routeID}/optimize", controllers.OptimizeRouteStops(svcs.Routes, logg))
		})

		r.Route("/drivers", func(r chi.Router) {
			r.Post("/", controllers.CreateDriver(svcs.Drivers, svcs.Users, logg))
			r.Get("/", controllers.ListDrivers(svcs.Drivers, logg))
			r.Get("/{driverID}", controllers.GetDriver(svcs.Drivers, logg))
			r.Patch("/{driverID}", controllers.UpdateDriver(svcs.Drivers, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", controllers.CreateVehicle(svcs.Vehicles, logg))
			r.Get("/", controllers.ListVehicles(svcs.Vehicles, logg))
			r.Get("/{vehicleID}", controllers.GetVehicle(svcs.Vehicles, logg))
			r.Patch("/{vehicleID}", controllers.UpdateVehicle(svcs.Vehicles, logg))
		})

		r.Route("/exceptions", func(r chi.Router) {
			r.Post("/", controllers.CreateException(svcs.Exceptions, logg))
			r.Get("/", controllers.ListExceptions(svcs.Exceptions, logg))
			r.Get("/{exceptionID}", controllers.GetException(svcs.Exceptions, logg))
			r.Post("/{exceptionID}/acknowledge", controllers.AcknowledgeException(svcs.Exceptions, logg))
			r.Post("/{exceptionID}/resolve", controllers.ResolveException(svcs.Exceptions, logg))
		})

		r.Route("/tenant", func(r chi.Router) {
			r.Get("/", controllers.GetTenant(svcs.Tenants, logg))
			r.With(middleware.RequireAdmin(logg)).Put("/webhook", controllers.UpdateWebhookConfig(svcs.Tenants, logg))
		})

		r.Get("/ws", controllers.WSOps(svcs.Hub, logg))
	})

	r.Route("/api/v1/driver", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireDriver(logg))

		r.Get("/routes/today", controllers.DriverTodayRoute(svcs.Routes, logg))
		r.Post("/orders/{orderID}/status", controllers.UpdateOrderStatus(svcs.Orders, logg))
		r.Post("/pods", controllers.CreatePOD(svcs.PODs, logg))
		r.Post("/location", controllers.UpdateDriverLocation(svcs.Drivers, logg))
	})

	// Route event stream is shared by ops dashboards and the driver app.
	r.With(middleware.Auth(cfg.JWT, logg)).
		Get("/api/v1/ws/routes/{routeID}", controllers.WSRoute(svcs.Hub, svcs.Routes, logg))

	return r
}
