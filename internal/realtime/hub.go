package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/cargoflow/backend/pkg/logger"
	redispkg "github.com/cargoflow/backend/pkg/redis"
)

type redisSubscription interface {
	Channel(...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

// Hub bridges Redis pub/sub channels to websocket clients on this instance.
// Each client subscribes to exactly one channel; a channel subscription to
// Redis is opened lazily on first client and closed when the last one leaves.
type Hub struct {
	redis *redispkg.Client
	logg  *logger.Logger

	mu       sync.Mutex
	channels map[string]*channelGroup
}

type channelGroup struct {
	clients map[*Client]bool
	cancel  context.CancelFunc
}

// NewHub builds a hub backed by the provided Redis client.
func NewHub(redisClient *redispkg.Client, logg *logger.Logger) *Hub {
	return &Hub{
		redis:    redisClient,
		logg:     logg,
		channels: make(map[string]*channelGroup),
	}
}

// Register attaches a client to its channel and starts the Redis subscription
// when this is the channel's first client.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.channels[client.channel]
	if !ok {
		subCtx, cancel := context.WithCancel(context.Background())
		sub, err := h.redis.Subscribe(subCtx, client.channel)
		if err != nil {
			cancel()
			return err
		}
		group = &channelGroup{clients: make(map[*Client]bool), cancel: cancel}
		h.channels[client.channel] = group
		go h.pump(subCtx, client.channel, sub)
	}
	group.clients[client] = true
	return nil
}

// Unregister detaches a client; the Redis subscription is torn down with the
// last client on the channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.channels[client.channel]
	if !ok {
		return
	}
	if _, registered := group.clients[client]; !registered {
		return
	}
	delete(group.clients, client)
	close(client.send)
	if len(group.clients) == 0 {
		group.cancel()
		delete(h.channels, client.channel)
	}
}

func (h *Hub) pump(ctx context.Context, channel string, sub redisSubscription) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				if h.logg != nil {
					logCtx := h.logg.WithField(context.Background(), "channel", channel)
					h.logg.Error(logCtx, "dropping malformed realtime frame", err)
				}
				continue
			}
			h.broadcast(channel, msg)
		}
	}
}

func (h *Hub) broadcast(channel string, msg Message) {
	h.mu.Lock()
	group, ok := h.channels[channel]
	if !ok {
		h.mu.Unlock()
		return
	}
	clients := make([]*Client, 0, len(group.clients))
	for client := range group.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			// Slow consumer: drop the frame rather than block the pump.
		}
	}
}

// Shutdown closes every channel subscription and client send queue.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, group := range h.channels {
		group.cancel()
		for client := range group.clients {
			close(client.send)
		}
		delete(h.channels, name)
	}
}
