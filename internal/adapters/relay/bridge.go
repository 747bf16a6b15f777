package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bridge fans relay events out across instances over a Redis pub/sub
// channel. The workflow emits through the bridge; every instance, including
// the emitting one, delivers to its local sessions when the message comes
// back around. Pub/sub gives no delivery guarantee, which matches the relay
// contract.
type Bridge struct {
	logger  *slog.Logger
	client  *redis.Client
	channel string
	hub     *Hub
}

type bridgeMessage struct {
	Scope   string          `json:"scope"`
	UserID  uuid.UUID       `json:"user_id,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

const (
	scopeAll  = "all"
	scopeUser = "user"
)

func NewBridge(logger *slog.Logger, client *redis.Client, channel string, hub *Hub) *Bridge {
	if channel == "" {
		channel = "timebank:relay"
	}
	return &Bridge{
		logger:  logger,
		client:  client,
		channel: channel,
		hub:     hub,
	}
}

func (b *Bridge) Broadcast(event string, payload any) {
	b.publish(bridgeMessage{Scope: scopeAll, Event: event}, payload)
}

func (b *Bridge) EmitToUser(userID uuid.UUID, event string, payload any) {
	b.publish(bridgeMessage{Scope: scopeUser, UserID: userID, Event: event}, payload)
}

func (b *Bridge) publish(msg bridgeMessage, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg.Payload = raw
	frame, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := b.client.Publish(context.Background(), b.channel, frame).Err(); err != nil {
		b.logger.Warn("relay publish failed",
			"module", "relay.bridge",
			"layer", "adapter",
			"operation", "publish",
			"outcome", "failure",
			"event", msg.Event,
			"error", err,
		)
	}
}

// Run subscribes to the relay channel and dispatches incoming events to the
// local hub until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	b.logger.InfoContext(ctx, "relay bridge subscribed",
		"module", "relay.bridge",
		"layer", "adapter",
		"operation", "subscribe",
		"outcome", "success",
		"channel", b.channel,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg bridgeMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				continue
			}
			switch msg.Scope {
			case scopeAll:
				b.hub.Broadcast(msg.Event, msg.Payload)
			case scopeUser:
				b.hub.EmitToUser(msg.UserID, msg.Event, msg.Payload)
			}
		}
	}
}
