package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/logger"
)

type fakePlannedReader struct {
	routes  []models.Route
	err     error
	lastDay time.Time
}

func (f *fakePlannedReader) ListPlannedForDate(_ context.Context, day time.Time) ([]models.Route, error) {
	f.lastDay = day
	return f.routes, f.err
}

func TestRouteReminderLogsEachPlannedRoute(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: &buf})
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	reader := &fakePlannedReader{routes: []models.Route{
		{
			ID:        uuid.New(),
			TenantID:  uuid.New(),
			DriverID:  uuid.New(),
			RouteDate: now,
			Driver:    &models.Driver{Name: "Asha Kulkarni"},
		},
		{
			ID:        uuid.New(),
			TenantID:  uuid.New(),
			DriverID:  uuid.New(),
			RouteDate: now,
		},
	}}
	jobIface, err := NewRouteReminderJob(RouteReminderJobParams{Logger: logg, Routes: reader})
	if err != nil {
		t.Fatalf("NewRouteReminderJob: %v", err)
	}
	job := jobIface.(*routeReminderJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reader.lastDay.Equal(now) {
		t.Fatalf("expected query for %s, got %s", now, reader.lastDay)
	}
	out := buf.String()
	if got := bytes.Count(buf.Bytes(), []byte("route reminder\"")); got != 2 {
		t.Fatalf("expected 2 reminder lines, got %d in %s", got, out)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Asha Kulkarni")) {
		t.Fatalf("expected driver name in reminder output: %s", out)
	}
}

func TestRouteReminderPropagatesQueryError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	jobIface, err := NewRouteReminderJob(RouteReminderJobParams{
		Logger: logg,
		Routes: &fakePlannedReader{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewRouteReminderJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
