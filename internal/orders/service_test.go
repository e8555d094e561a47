package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/realtime"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
	pkgerrors "github.com/cargoflow/backend/pkg/errors"
	"github.com/cargoflow/backend/pkg/outbox"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS outbox_messages`,
		`DROP TABLE IF EXISTS events`,
		`DROP TABLE IF EXISTS status_histories`,
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
  updated_at DATETIME,
  UNIQUE (tenant_id, reference_code)
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

type fakeRouteStore struct {
	routes    map[uuid.UUID]*models.Route
	completed map[uuid.UUID]int
}

func newFakeRouteStore() *fakeRouteStore {
	return &fakeRouteStore{
		routes:    map[uuid.UUID]*models.Route{},
		completed: map[uuid.UUID]int{},
	}
}

func (f *fakeRouteStore) FindForTenant(_ context.Context, _ *gorm.DB, tenantID, routeID uuid.UUID) (*models.Route, error) {
	route, ok := f.routes[routeID]
	if !ok || route.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *route
	return &copied, nil
}

func (f *fakeRouteStore) MarkCompleted(_ context.Context, _ *gorm.DB, routeID uuid.UUID, endedAt time.Time) error {
	f.completed[routeID]++
	if route, ok := f.routes[routeID]; ok {
		route.Status = enums.RouteStatusCompleted
		route.EndTime = &endedAt
	}
	return nil
}

func newOrderTestService(t *testing.T, conn *gorm.DB, routes *fakeRouteStore) Service {
	t.Helper()

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)

	svc, err := NewService(dbpkg.NewFromConn(conn), NewRepository(conn), ledgerSvc, outboxSvc, routes, realtime.NoopPublisher{})
	require.NoError(t, err)
	return svc
}

func opsActor() ledger.Actor {
	userID := uuid.New()
	return ledger.Actor{UserID: &userID, Type: enums.ActorOps}
}

func driverActor() ledger.Actor {
	userID := uuid.New()
	return ledger.Actor{UserID: &userID, Type: enums.ActorDriver}
}

func twoStopInput(reference string) CreateOrderInput {
	lat1, lng1 := 19.076, 72.8777
	lat2, lng2 := 18.5204, 73.8567
	return CreateOrderInput{
		ReferenceCode: reference,
		CustomerName:  "Asha Kulkarni",
		CustomerPhone: "+91-98200-11111",
		Stops: []CreateStopInput{
			{SequenceIndex: 1, Type: enums.StopTypePickup, AddressLine: "Warehouse 4, Andheri East", City: "Mumbai", Lat: &lat1, Lng: &lng1},
			{SequenceIndex: 2, Type: enums.StopTypeDrop, AddressLine: "12 FC Road", City: "Pune", Lat: &lat2, Lng: &lng2},
		},
	}
}

func TestCreateOrderWritesHistoryAndEvent(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())
	tenantID := uuid.New()

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-1001"))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCreated, order.Status)
	assert.NotEmpty(t, order.TrackingToken)
	assert.Len(t, order.Stops, 2)

	var histories []models.StatusHistory
	require.NoError(t, conn.Where("order_id = ?", order.ID).Find(&histories).Error)
	require.Len(t, histories, 1)
	assert.Equal(t, enums.OrderStatus(""), histories[0].FromStatus)
	assert.Equal(t, enums.OrderStatusCreated, histories[0].ToStatus)
	assert.Equal(t, enums.ActorOps, histories[0].ActorType)

	var events []models.Event
	require.NoError(t, conn.Where("tenant_id = ?", tenantID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)

	var messageCount int64
	require.NoError(t, conn.Table("outbox_messages").Count(&messageCount).Error)
	assert.EqualValues(t, 1, messageCount)
}

func TestCreateOrderDuplicateReferenceSameTenant(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())
	tenantID := uuid.New()

	_, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-2001"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-2001"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateReference))

	// Same reference in a different tenant is fine.
	_, err = svc.Create(context.Background(), uuid.New(), opsActor(), twoStopInput("ORD-2001"))
	assert.NoError(t, err)
}

func TestCreateOrderRequiresStops(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())

	_, err := svc.Create(context.Background(), uuid.New(), opsActor(), CreateOrderInput{
		ReferenceCode: "ORD-3001",
		CustomerName:  "No Stops",
		CustomerPhone: "+91-98200-22222",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestCancelFromCreated(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())
	tenantID := uuid.New()

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-4001"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), tenantID, opsActor(), order.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	var histories []models.StatusHistory
	require.NoError(t, conn.Where("order_id = ? AND to_status = ?", order.ID, enums.OrderStatusCancelled).Find(&histories).Error)
	require.Len(t, histories, 1)
	assert.Equal(t, enums.OrderStatusCreated, histories[0].FromStatus)
	assert.Equal(t, "customer withdrew", histories[0].Metadata["reason"])

	var events []models.Event
	require.NoError(t, conn.Where("event_type = ?", enums.EventOrderCancelled).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestCancelRejectedFromInTransit(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-5001"))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusInTransit).Error)

	_, err = svc.Cancel(context.Background(), tenantID, opsActor(), order.ID, "too late")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotCancellable))

	var current models.Order
	require.NoError(t, conn.Where("id = ?", order.ID).First(&current).Error)
	assert.Equal(t, enums.OrderStatusInTransit, current.Status)
}

func TestCancelCompletesRouteWhenLastOrderCloses(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()
	routeID := uuid.New()
	routes.routes[routeID] = &models.Route{ID: routeID, TenantID: tenantID, Status: enums.RouteStatusInProgress}

	first, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-6001"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-6002"))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", first.ID).
		Updates(map[string]any{"status": enums.OrderStatusInTransit, "assigned_route_id": routeID}).Error)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", second.ID).
		Updates(map[string]any{"status": enums.OrderStatusAssigned, "assigned_route_id": routeID}).Error)

	_, err = svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID: first.ID, ToStatus: enums.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.Zero(t, routes.completed[routeID], "route must stay open while orders remain")

	// Cancelling the last open order closes out the route too.
	_, err = svc.Cancel(context.Background(), tenantID, opsActor(), second.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, 1, routes.completed[routeID])
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())
	tenantID := uuid.New()

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-6001"))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID:  order.ID,
		ToStatus: enums.OrderStatusDelivered,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	var histories int64
	require.NoError(t, conn.Table("status_histories").Where("order_id = ?", order.ID).Count(&histories).Error)
	assert.EqualValues(t, 1, histories)
}

func TestUpdateStatusCompletesStop(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()
	routeID := uuid.New()
	routes.routes[routeID] = &models.Route{ID: routeID, TenantID: tenantID, Status: enums.RouteStatusInProgress}

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-7001"))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": enums.OrderStatusAssigned, "assigned_route_id": routeID}).Error)

	pickup := order.Stops[0]
	updated, err := svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID:  order.ID,
		ToStatus: enums.OrderStatusPickedUp,
		StopID:   &pickup.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPickedUp, updated.Status)

	var stop models.Stop
	require.NoError(t, conn.Where("id = ?", pickup.ID).First(&stop).Error)
	assert.Equal(t, enums.StopStatusCompleted, stop.Status)
	assert.NotNil(t, stop.ActualArrivalTime)

	var histories []models.StatusHistory
	require.NoError(t, conn.Where("order_id = ? AND to_status = ?", order.ID, enums.OrderStatusPickedUp).Find(&histories).Error)
	require.Len(t, histories, 1)
	require.NotNil(t, histories[0].StopID)
	assert.Equal(t, pickup.ID, *histories[0].StopID)
	assert.Equal(t, enums.ActorDriver, histories[0].ActorType)

	var events []models.Event
	require.NoError(t, conn.Where("event_type = ?", enums.EventOrderStatusChanged).Find(&events).Error)
	assert.Len(t, events, 1)
}

func TestDeliveryCompletesRouteExactlyOnce(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()
	routeID := uuid.New()
	routes.routes[routeID] = &models.Route{ID: routeID, TenantID: tenantID, Status: enums.RouteStatusInProgress}

	first, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-8001"))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-8002"))
	require.NoError(t, err)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", id).
			Updates(map[string]any{"status": enums.OrderStatusInTransit, "assigned_route_id": routeID}).Error)
	}

	_, err = svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID: first.ID, ToStatus: enums.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.Zero(t, routes.completed[routeID], "route must stay open while orders remain")

	_, err = svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID: second.ID, ToStatus: enums.OrderStatusFailed,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, routes.completed[routeID])
}

func TestRouteWithoutOrdersNeverAutoCompletes(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()

	emptyRouteID := uuid.New()
	routes.routes[emptyRouteID] = &models.Route{ID: emptyRouteID, TenantID: tenantID, Status: enums.RouteStatusInProgress}

	// The order belongs to a different route; the empty one stays untouched.
	busyRouteID := uuid.New()
	routes.routes[busyRouteID] = &models.Route{ID: busyRouteID, TenantID: tenantID, Status: enums.RouteStatusPlanned}

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-9001"))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"status": enums.OrderStatusInTransit, "assigned_route_id": busyRouteID}).Error)

	_, err = svc.UpdateStatus(context.Background(), tenantID, driverActor(), UpdateStatusInput{
		OrderID: order.ID, ToStatus: enums.OrderStatusDelivered,
	})
	require.NoError(t, err)

	assert.Zero(t, routes.completed[emptyRouteID])
	assert.Zero(t, routes.completed[busyRouteID], "PLANNED routes are not auto-completed")
}

func TestReassignRequiresAssignedStatus(t *testing.T) {
	conn := setupOrderTestDB(t)
	routes := newFakeRouteStore()
	svc := newOrderTestService(t, conn, routes)
	tenantID := uuid.New()
	targetRouteID := uuid.New()
	routes.routes[targetRouteID] = &models.Route{ID: targetRouteID, TenantID: tenantID, Status: enums.RouteStatusPlanned}

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-9101"))
	require.NoError(t, err)

	_, err = svc.Reassign(context.Background(), tenantID, opsActor(), order.ID, targetRouteID, "rebalance")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition))

	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", enums.OrderStatusAssigned).Error)

	moved, err := svc.Reassign(context.Background(), tenantID, opsActor(), order.ID, targetRouteID, "rebalance")
	require.NoError(t, err)
	require.NotNil(t, moved.AssignedRouteID)
	assert.Equal(t, targetRouteID, *moved.AssignedRouteID)
	assert.Equal(t, enums.OrderStatusAssigned, moved.Status)

	var histories []models.StatusHistory
	require.NoError(t, conn.Where("order_id = ? AND from_status = ? AND to_status = ?",
		order.ID, enums.OrderStatusAssigned, enums.OrderStatusAssigned).Find(&histories).Error)
	require.Len(t, histories, 1)
	assert.Equal(t, "rebalance", histories[0].Metadata["note"])
	assert.Equal(t, targetRouteID.String(), histories[0].Metadata["target_route_id"])

	// Reassignment is not a state change and emits no integration event.
	var eventCount int64
	require.NoError(t, conn.Table("events").Where("event_type = ?", enums.EventOrderStatusChanged).Count(&eventCount).Error)
	assert.Zero(t, eventCount)
}

func TestGetByIDScopedToTenant(t *testing.T) {
	conn := setupOrderTestDB(t)
	svc := newOrderTestService(t, conn, newFakeRouteStore())
	tenantID := uuid.New()

	order, err := svc.Create(context.Background(), tenantID, opsActor(), twoStopInput("ORD-9201"))
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), uuid.New(), order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	found, err := svc.GetByID(context.Background(), tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Len(t, found.Stops, 2)
}
