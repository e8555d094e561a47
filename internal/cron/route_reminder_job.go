package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/logger"
)

// RouteReminderJobParams configure the morning route reminder sweep.
type RouteReminderJobParams struct {
	Logger *logger.Logger
	Routes plannedRouteReader
}

type plannedRouteReader interface {
	ListPlannedForDate(ctx context.Context, day time.Time) ([]models.Route, error)
}

// NewRouteReminderJob builds the cron job that reminds drivers about routes
// planned for today. Delivery is a structured log line; a push or SMS channel
// would hang off the same loop.
func NewRouteReminderJob(params RouteReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Routes == nil {
		return nil, fmt.Errorf("routes reader required")
	}
	return &routeReminderJob{
		logg:   params.Logger,
		routes: params.Routes,
		now:    time.Now,
	}, nil
}

type routeReminderJob struct {
	logg   *logger.Logger
	routes plannedRouteReader
	now    func() time.Time
}

func (j *routeReminderJob) Name() string { return "route-reminder" }

func (j *routeReminderJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	routes, err := j.routes.ListPlannedForDate(ctx, today)
	if err != nil {
		return fmt.Errorf("query planned routes: %w", err)
	}

	for _, route := range routes {
		fields := map[string]any{
			"route_id":   route.ID,
			"tenant_id":  route.TenantID,
			"driver_id":  route.DriverID,
			"route_date": route.RouteDate.Format("2006-01-02"),
		}
		if route.Driver != nil {
			fields["driver_name"] = route.Driver.Name
		}
		j.logg.Info(j.logg.WithFields(ctx, fields), "route reminder")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": len(routes)})
	j.logg.Info(logCtx, "route reminder loop complete")
	return nil
}
