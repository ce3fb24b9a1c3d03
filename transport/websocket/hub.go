package websocket

import (
	"context"
	"log/slog"
)

type channelMessage struct {
	channel string
	data    []byte
}

// Hub routes broadcast-channel messages to the connections subscribed to
// them. Registration, unregistration and delivery all run on one goroutine
// so the channel map needs no locking.
type Hub struct {
	logger *slog.Logger

	channels map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan channelMessage
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger.With("component", "ws-hub"),
		channels:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan channelMessage, 64),
	}
}

// Broadcast queues a raw event for every client on the channel.
func (that *Hub) Broadcast(channel string, data []byte) {
	that.broadcast <- channelMessage{channel: channel, data: data}
}

// Run owns the channel map until the context is canceled.
func (that *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for channel, clients := range that.channels {
				for client := range clients {
					close(client.send)
				}
				delete(that.channels, channel)
			}
			return

		case client := <-that.register:
			clients, ok := that.channels[client.channel]
			if !ok {
				clients = make(map[*Client]bool)
				that.channels[client.channel] = clients
			}
			clients[client] = true
			that.logger.Debug("client registered", "channel", client.channel)

		case client := <-that.unregister:
			if clients, ok := that.channels[client.channel]; ok {
				if clients[client] {
					delete(clients, client)
					close(client.send)
				}
				if len(clients) == 0 {
					delete(that.channels, client.channel)
				}
			}

		case message := <-that.broadcast:
			for client := range that.channels[message.channel] {
				data := personalize(client, message.data)

				select {
				case client.send <- data:
				default:
					// slow consumer, drop the connection
					delete(that.channels[message.channel], client)
					close(client.send)
				}
			}
		}
	}
}
