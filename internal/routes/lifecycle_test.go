package routes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/backend/internal/ledger"
	"github.com/cargoflow/backend/internal/orders"
	"github.com/cargoflow/backend/internal/pods"
	dbpkg "github.com/cargoflow/backend/pkg/db"
	"github.com/cargoflow/backend/pkg/db/models"
	"github.com/cargoflow/backend/pkg/enums"
)

// The full happy path: an order moves CREATED through DELIVERED across route
// planning, route start, driver transitions and the POD upload, and the route
// completes when its last order lands.
func TestOrderLifecycleEndToEnd(t *testing.T) {
	f := newRouteFixture(t)
	require.NoError(t, f.conn.Exec(`CREATE TABLE pods (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  receiver_name TEXT NOT NULL,
  photo_ref TEXT,
  signature_ref TEXT,
  notes TEXT,
  delivered_at DATETIME NOT NULL,
  created_at DATETIME
);`).Error)

	orderRepo := orders.NewRepository(f.conn)
	podSvc, err := pods.NewService(dbpkg.NewFromConn(f.conn), pods.NewRepository(f.conn), orderRepo, f.orderSvc)
	require.NoError(t, err)

	ctx := context.Background()
	order := f.createOrder(t, "ORD-E2E", [][2]float64{{19.076, 72.8777}, {18.5204, 73.8567}})

	route, err := f.svc.Create(ctx, f.tenantID, f.actor, f.createInput(order.ID))
	require.NoError(t, err)

	assigned, err := f.orderSvc.GetByID(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedRouteID)
	assert.Equal(t, route.ID, *assigned.AssignedRouteID)

	started, err := f.svc.Start(ctx, f.tenantID, route.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RouteStatusInProgress, started.Status)
	assert.NotNil(t, started.StartTime)

	driverUserID := uuid.New()
	driver := ledger.Actor{UserID: &driverUserID, Type: enums.ActorDriver}
	for _, target := range []enums.OrderStatus{enums.OrderStatusPickedUp, enums.OrderStatusInTransit} {
		_, err := f.orderSvc.UpdateStatus(ctx, f.tenantID, driver, orders.UpdateStatusInput{
			OrderID:  order.ID,
			ToStatus: target,
		})
		require.NoError(t, err)
	}

	pod, err := podSvc.Create(ctx, f.tenantID, driver, pods.CreateInput{
		OrderID:      order.ID,
		ReceiverName: "Meera Joshi",
		PhotoRef:     "pods/ord-e2e/photo.jpg",
	})
	require.NoError(t, err)
	assert.False(t, pod.DeliveredAt.IsZero())

	delivered, err := f.orderSvc.GetByID(ctx, f.tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, delivered.Status)

	// Delivering the last order on the route completes it.
	var routeRow models.Route
	require.NoError(t, f.conn.Where("id = ?", route.ID).First(&routeRow).Error)
	assert.Equal(t, enums.RouteStatusCompleted, routeRow.Status)
	assert.NotNil(t, routeRow.EndTime)

	// Exactly one history row per lifecycle step, nothing doubled by the
	// route completion side effect.
	var histories []models.StatusHistory
	require.NoError(t, f.conn.Where("order_id = ?", order.ID).Find(&histories).Error)
	require.Len(t, histories, 5)
	seen := map[enums.OrderStatus]int{}
	for _, h := range histories {
		seen[h.ToStatus]++
	}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusCreated,
		enums.OrderStatusAssigned,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusDelivered,
	} {
		assert.Equal(t, 1, seen[status], "expected exactly one %s history row", status)
	}

	// One order.created plus one status_changed per transition, each with its
	// own outbox message. The POD itself emits nothing; DELIVERED already
	// carries the integration signal.
	var events []models.Event
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 5)
	eventCounts := map[enums.EventType]int{}
	for _, e := range events {
		eventCounts[e.EventType]++
	}
	assert.Equal(t, 1, eventCounts[enums.EventOrderCreated])
	assert.Equal(t, 4, eventCounts[enums.EventOrderStatusChanged])

	var outboxCount int64
	require.NoError(t, f.conn.Table("outbox_messages").Count(&outboxCount).Error)
	assert.EqualValues(t, 5, outboxCount)

	// Route start and completion are route facts, not order events.
	var routeHistories int64
	require.NoError(t, f.conn.Table("status_histories").Where("order_id != ?", order.ID).Count(&routeHistories).Error)
	assert.Zero(t, routeHistories)
}
