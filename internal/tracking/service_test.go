package tracking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/pods"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
)

func setupTrackingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS status_histories`,
		`DROP TABLE IF EXISTS pods`,
		`DROP TABLE IF EXISTS stops`,
		`DROP TABLE IF EXISTS orders`,
		`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  reference_code TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  customer_email TEXT,
  status TEXT NOT NULL DEFAULT 'CREATED',
  tracking_token TEXT NOT NULL UNIQUE,
  assigned_route_id TEXT,
  pickup_window_start DATETIME,
  pickup_window_end DATETIME,
  drop_window_start DATETIME,
  drop_window_end DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE stops (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sequence_index INTEGER NOT NULL,
  type TEXT NOT NULL,
  address_line TEXT NOT NULL,
  city TEXT,
  state TEXT,
  postal_code TEXT,
  lat REAL,
  lng REAL,
  scheduled_eta DATETIME,
  actual_arrival_time DATETIME,
  status TEXT NOT NULL DEFAULT 'PENDING',
  notes TEXT
);`,
		`CREATE TABLE pods (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  receiver_name TEXT NOT NULL,
  photo_ref TEXT,
  signature_ref TEXT,
  notes TEXT,
  delivered_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE status_histories (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  stop_id TEXT,
  actor_user_id TEXT,
  actor_type TEXT NOT NULL,
  from_status TEXT,
  to_status TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type trackingFixture struct {
	svc      Service
	conn     *gorm.DB
	tenantID uuid.UUID
	order    *models.Order
}

func newTrackingFixture(t *testing.T) *trackingFixture {
	t.Helper()

	conn := setupTrackingTestDB(t)
	tenantID := uuid.New()
	routeID := uuid.New()
	eta := time.Now().Add(2 * time.Hour).Truncate(time.Second)

	order := &models.Order{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ReferenceCode:   "ORD-T1",
		CustomerName:    "Nidhi Rao",
		CustomerPhone:   "+91-98200-88888",
		CustomerEmail:   "nidhi@example.com",
		Status:          enums.OrderStatusInTransit,
		TrackingToken:   "tok-" + uuid.NewString(),
		AssignedRouteID: &routeID,
	}
	require.NoError(t, conn.Create(order).Error)
	stops := []models.Stop{
		{ID: uuid.New(), OrderID: order.ID, SequenceIndex: 1, Type: enums.StopTypePickup, AddressLine: "Warehouse 4", City: "Mumbai", Status: enums.StopStatusCompleted},
		{ID: uuid.New(), OrderID: order.ID, SequenceIndex: 2, Type: enums.StopTypeDrop, AddressLine: "12 FC Road", City: "Pune", Status: enums.StopStatusPending, ScheduledETA: &eta},
	}
	for i := range stops {
		require.NoError(t, conn.Create(&stops[i]).Error)
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(orders.NewRepository(conn), pods.NewRepository(conn), ledgerSvc)
	require.NoError(t, err)

	return &trackingFixture{svc: svc, conn: conn, tenantID: tenantID, order: order}
}

func TestTrackingByToken(t *testing.T) {
	f := newTrackingFixture(t)

	view, err := f.svc.ByToken(context.Background(), f.order.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, f.order.ID, view.OrderID)
	assert.Equal(t, "ORD-T1", view.ReferenceCode)
	assert.Equal(t, "Nidhi Rao", view.CustomerName)
	assert.Equal(t, enums.OrderStatusInTransit, view.Status)
	require.Len(t, view.Stops, 2)
	assert.Equal(t, enums.StopTypePickup, view.Stops[0].Type)

	require.NotNil(t, view.DriverETA)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), *view.DriverETA, 5*time.Second)
}

func TestTrackingNeverLeaksContactOrToken(t *testing.T) {
	f := newTrackingFixture(t)

	view, err := f.svc.ByToken(context.Background(), f.order.TrackingToken)
	require.NoError(t, err)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	body := string(raw)
	assert.NotContains(t, body, f.order.CustomerPhone)
	assert.NotContains(t, body, f.order.CustomerEmail)
	assert.NotContains(t, body, f.order.TrackingToken)
	assert.NotContains(t, body, f.tenantID.String())
}

func TestTrackingIncludesPODSummary(t *testing.T) {
	f := newTrackingFixture(t)
	deliveredAt := time.Now().Truncate(time.Second)
	require.NoError(t, f.conn.Create(&models.POD{
		ID:           uuid.New(),
		OrderID:      f.order.ID,
		ReceiverName: "Meera Joshi",
		DeliveredAt:  deliveredAt,
	}).Error)

	view, err := f.svc.ByToken(context.Background(), f.order.TrackingToken)
	require.NoError(t, err)
	require.NotNil(t, view.PODSummary)
	assert.Equal(t, "Meera Joshi", view.PODSummary.ReceiverName)
}

func TestTrackingLastUpdateFromHistory(t *testing.T) {
	f := newTrackingFixture(t)
	latest := time.Now().Add(-10 * time.Minute).Truncate(time.Second)
	require.NoError(t, f.conn.Create(&models.StatusHistory{
		ID:        uuid.New(),
		TenantID:  f.tenantID,
		OrderID:   f.order.ID,
		ActorType: enums.ActorDriver,
		ToStatus:  enums.OrderStatusInTransit,
		CreatedAt: latest,
	}).Error)

	view, err := f.svc.ByToken(context.Background(), f.order.TrackingToken)
	require.NoError(t, err)
	assert.WithinDuration(t, latest, view.LastUpdate, time.Second)
}

func TestTrackingUnknownToken(t *testing.T) {
	f := newTrackingFixture(t)

	_, err := f.svc.ByToken(context.Background(), "no-such-token")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ByToken(context.Background(), "")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestTrackingETAOnlyWhenRouted(t *testing.T) {
	f := newTrackingFixture(t)
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", f.order.ID).Update("assigned_route_id", nil).Error)

	view, err := f.svc.ByToken(context.Background(), f.order.TrackingToken)
	require.NoError(t, err)
	assert.Nil(t, view.DriverETA)
}
