package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/cargoflow/backend/api/routes"
	"github.com/cargoflow/backend/internal/drivers"
	"github.com/cargoflow/backend/internal/exceptions"
	"github.com/cargoflow/backend/internal/ledger"
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
	"github.com/cargoflow/backend/pkg/migrate"
	"github.com/cargoflow/backend/pkg/outbox"
	"github.com/cargoflow/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	hub := realtime.NewHub(redisClient, logg)
	publisher := realtime.NewRedisPublisher(redisClient, logg)

	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)
	routeRepo := routesvc.NewRepository(conn)
	driverRepo := drivers.NewRepository(conn)
	vehicleRepo := vehicles.NewRepository(conn)
	podRepo := pods.NewRepository(conn)
	exceptionRepo := exceptions.NewRepository(conn)
	userRepo := users.NewRepository(conn)
	tenantRepo := tenants.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)

	outboxSvc := outbox.NewService(outboxRepo, logg)

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	orderSvc, err := orders.NewService(dbClient, orderRepo, ledgerSvc, outboxSvc, routeRepo, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	routeSvc, err := routesvc.NewService(dbClient, routeRepo, orderRepo, orderSvc, driverRepo, vehicleRepo, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create route service", err)
		os.Exit(1)
	}
	driverSvc, err := drivers.NewService(driverRepo, routeRepo, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create driver service", err)
		os.Exit(1)
	}
	vehicleSvc, err := vehicles.NewService(vehicleRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create vehicle service", err)
		os.Exit(1)
	}
	podSvc, err := pods.NewService(dbClient, podRepo, orderRepo, orderSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create pod service", err)
		os.Exit(1)
	}
	exceptionSvc, err := exceptions.NewService(dbClient, exceptionRepo, orderRepo, outboxSvc, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create exception service", err)
		os.Exit(1)
	}
	userSvc, err := users.NewService(userRepo, driverRepo, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}
	tenantSvc, err := tenants.NewService(tenantRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create tenant service", err)
		os.Exit(1)
	}
	trackingSvc, err := tracking.NewService(orderRepo, podRepo, ledgerSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Users:      userSvc,
			Tenants:    tenantSvc,
			Orders:     orderSvc,
			Routes:     routeSvc,
			Drivers:    driverSvc,
			Vehicles:   vehicleSvc,
			PODs:       podSvc,
			Exceptions: exceptionSvc,
			Tracking:   trackingSvc,
			Hub:        hub,
		}),
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
		}
		hub.Shutdown()
	}
}
