package exceptions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/realtime"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/outbox"
)

func setupExceptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS outbox_messages`,
		`DROP TABLE IF EXISTS events`,
		`DROP TABLE IF EXISTS exceptions`,
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
		`CREATE TABLE exceptions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'OPEN',
  notes TEXT,
  resolution TEXT,
  created_by_id TEXT,
  acknowledged_at DATETIME,
  resolved_at DATETIME,
  created_at DATETIME
);`,
		`CREATE TABLE events (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE outbox_messages (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  retries INTEGER NOT NULL DEFAULT 0,
  next_attempt_at DATETIME,
  last_error TEXT,
  processed_at DATETIME,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type excFixture struct {
	svc      Service
	conn     *gorm.DB
	tenantID uuid.UUID
	orderID  uuid.UUID
}

func newExceptionFixture(t *testing.T) *excFixture {
	t.Helper()

	conn := setupExceptionTestDB(t)
	tenantID := uuid.New()
	orderID := uuid.New()
	require.NoError(t, conn.Create(&models.Order{
		ID:            orderID,
		TenantID:      tenantID,
		ReferenceCode: "ORD-E1",
		CustomerName:  "Kabir Khanna",
		CustomerPhone: "+91-98200-66666",
		Status:        enums.OrderStatusInTransit,
		TrackingToken: uuid.NewString(),
	}).Error)

	svc, err := NewService(
		dbpkg.NewFromConn(conn),
		NewRepository(conn),
		orders.NewRepository(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
		realtime.NoopPublisher{},
	)
	require.NoError(t, err)

	return &excFixture{svc: svc, conn: conn, tenantID: tenantID, orderID: orderID}
}

func (f *excFixture) raise(t *testing.T) *models.Exception {
	t.Helper()
	exc, err := f.svc.Create(context.Background(), f.tenantID, CreateInput{
		OrderID: f.orderID,
		Type:    enums.ExceptionDelay,
		Notes:   "stuck at toll plaza",
	})
	require.NoError(t, err)
	return exc
}

func TestExceptionCreateOpensAndEmits(t *testing.T) {
	f := newExceptionFixture(t)
	exc := f.raise(t)
	assert.Equal(t, enums.ExceptionStatusOpen, exc.Status)

	var events []models.Event
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventExceptionRaised).Find(&events).Error)
	require.Len(t, events, 1)

	var messageCount int64
	require.NoError(t, f.conn.Table("outbox_messages").Count(&messageCount).Error)
	assert.EqualValues(t, 1, messageCount)
}

func TestExceptionCreateRejectsForeignOrder(t *testing.T) {
	f := newExceptionFixture(t)

	_, err := f.svc.Create(context.Background(), uuid.New(), CreateInput{
		OrderID: f.orderID,
		Type:    enums.ExceptionDelay,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var excCount int64
	require.NoError(t, f.conn.Table("exceptions").Count(&excCount).Error)
	assert.Zero(t, excCount)
}

func TestExceptionAcknowledgeAppendsNote(t *testing.T) {
	f := newExceptionFixture(t)
	exc := f.raise(t)

	acked, err := f.svc.Acknowledge(context.Background(), f.tenantID, exc.ID, "dispatcher notified")
	require.NoError(t, err)
	assert.Equal(t, enums.ExceptionStatusAcknowledged, acked.Status)
	assert.Equal(t, "stuck at toll plaza\nACK: dispatcher notified", acked.Notes)
	assert.NotNil(t, acked.AcknowledgedAt)

	_, err = f.svc.Acknowledge(context.Background(), f.tenantID, exc.ID, "again")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestExceptionResolveDirectlyFromOpen(t *testing.T) {
	f := newExceptionFixture(t)
	exc := f.raise(t)

	resolved, err := f.svc.Resolve(context.Background(), f.tenantID, exc.ID, "driver rerouted")
	require.NoError(t, err)
	assert.Equal(t, enums.ExceptionStatusResolved, resolved.Status)
	assert.Equal(t, "driver rerouted", resolved.Resolution)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Nil(t, resolved.AcknowledgedAt)
}
