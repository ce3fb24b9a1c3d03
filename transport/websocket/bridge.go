package websocket

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/connectquatro-backend/internal/broadcast"
)

// Bridge pipes the Redis pub/sub event stream into the hub. One bridge per
// process; every session channel plus the lobby directory flows through it.
type Bridge struct {
	logger  *slog.Logger
	gateway *broadcast.Gateway
	hub     *Hub
}

func NewBridge(logger *slog.Logger, gateway *broadcast.Gateway, hub *Hub) *Bridge {
	return &Bridge{
		logger:  logger.With("component", "ws-bridge"),
		gateway: gateway,
		hub:     hub,
	}
}

// Run consumes the subscription until the context is canceled.
func (that *Bridge) Run(ctx context.Context) error {
	pubsub := that.gateway.Subscribe(ctx, "game:*", broadcast.LobbyRoomsChannel)
	defer pubsub.Close()

	channel := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-channel:
			if !ok {
				return nil
			}
			that.hub.Broadcast(message.Channel, []byte(message.Payload))
		}
	}
}
