package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cargoflow/backend/pkg/logger"
	redispkg "github.com/cargoflow/backend/pkg/redis"
)

// Realtime fan-out is best-effort. Publish failures are logged and swallowed;
// the durable path for integrations is the webhook outbox.

// Frame type names seen by websocket subscribers.
const (
	TypeOrderUpdated   = "order.updated"
	TypeRouteUpdated   = "route.updated"
	TypeDriverLocation = "driver.location"
)

// Message is the JSON frame pushed to websocket subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Publisher pushes messages to named audiences.
type Publisher interface {
	PublishToTenant(ctx context.Context, tenantID uuid.UUID, msg Message)
	PublishToRoute(ctx context.Context, routeID uuid.UUID, msg Message)
	PublishToTracking(ctx context.Context, orderID uuid.UUID, msg Message)
}

// OpsChannel names the per-tenant ops dashboard audience.
func OpsChannel(tenantID uuid.UUID) string {
	return fmt.Sprintf("ops_tenant_%s", tenantID)
}

// RouteChannel names the per-route driver audience.
func RouteChannel(routeID uuid.UUID) string {
	return fmt.Sprintf("route_%s", routeID)
}

// TrackingChannel names the public per-order tracking audience.
func TrackingChannel(orderID uuid.UUID) string {
	return fmt.Sprintf("tracking_%s", orderID)
}

type redisPublisher struct {
	client *redispkg.Client
	logg   *logger.Logger
}

// NewRedisPublisher fans messages out through Redis pub/sub so every API
// instance sees them.
func NewRedisPublisher(client *redispkg.Client, logg *logger.Logger) Publisher {
	return &redisPublisher{client: client, logg: logg}
}

func (p *redisPublisher) publish(ctx context.Context, channel string, msg Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		p.warn(ctx, channel, err)
		return
	}
	if err := p.client.Publish(ctx, channel, body); err != nil {
		p.warn(ctx, channel, err)
	}
}

func (p *redisPublisher) warn(ctx context.Context, channel string, err error) {
	if p.logg == nil {
		return
	}
	logCtx := p.logg.WithField(ctx, "channel", channel)
	p.logg.Error(logCtx, "realtime publish dropped", err)
}

func (p *redisPublisher) PublishToTenant(ctx context.Context, tenantID uuid.UUID, msg Message) {
	p.publish(ctx, OpsChannel(tenantID), msg)
}

func (p *redisPublisher) PublishToRoute(ctx context.Context, routeID uuid.UUID, msg Message) {
	p.publish(ctx, RouteChannel(routeID), msg)
}

func (p *redisPublisher) PublishToTracking(ctx context.Context, orderID uuid.UUID, msg Message) {
	p.publish(ctx, TrackingChannel(orderID), msg)
}

// NoopPublisher drops every message. Used by workers that never fan out and
// in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishToTenant(context.Context, uuid.UUID, Message)   {}
func (NoopPublisher) PublishToRoute(context.Context, uuid.UUID, Message)    {}
func (NoopPublisher) PublishToTracking(context.Context, uuid.UUID, Message) {}
