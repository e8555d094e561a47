package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cargoflow/backend/internal/cron"
	"github.com/cargoflow/backend/internal/exceptions"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/realtime"
	routesvc "github.com/cargoflow/backend/internal/routes"
	"github.com/cargoflow/backend/pkg/config"
	"github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/logger"
	"github.com/cargoflow/backend/pkg/metrics"
	"github.com/cargoflow/backend/pkg/migrate"
	"github.com/cargoflow/backend/pkg/outbox"
	"github.com/cargoflow/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)
	routeRepo := routesvc.NewRepository(conn)
	exceptionRepo := exceptions.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	publisher := realtime.NewRedisPublisher(redisClient, logg)

	exceptionSvc, err := exceptions.NewService(dbClient, exceptionRepo, orderRepo, outboxSvc, publisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create exception service", err)
		os.Exit(1)
	}

	delayJob, err := cron.NewDelayDetectionJob(cron.DelayDetectionJobParams{
		Logger:     logg,
		Orders:     orderRepo,
		Exceptions: exceptionRepo,
		Raiser:     exceptionSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delay detection job", err)
		os.Exit(1)
	}
	reminderJob, err := cron.NewRouteReminderJob(cron.RouteReminderJobParams{
		Logger: logg,
		Routes: routeRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create route reminder job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	if addr := cfg.Service.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
				logg.Error(context.Background(), "metrics listener stopped", err)
			}
		}()
	}
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(delayJob, reminderJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
