package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectquatro-backend/internal/broadcast"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func receive(t *testing.T, client *Client) []byte {
	t.Helper()

	select {
	case data := <-client.send:
		return data
	case <-time.After(time.Second):
		t.Fatal("client never received the event")
		return nil
	}
}

func TestHub_BroadcastRouting(t *testing.T) {
	// Given: a running hub with clients on two channels
	hub := newTestHub(t)

	gameClient := &Client{send: make(chan []byte, 1), channel: "game:red-seven"}
	lobbyClient := &Client{send: make(chan []byte, 1), channel: broadcast.LobbyRoomsChannel}

	hub.register <- gameClient
	hub.register <- lobbyClient

	// When: an event lands on the game channel
	hub.Broadcast("game:red-seven", []byte(`{"type":"game.started"}`))

	// Then: only the game client receives it
	data := receive(t, gameClient)
	assert.JSONEq(t, `{"type":"game.started"}`, string(data))

	select {
	case <-lobbyClient.send:
		t.Fatal("lobby client received a game event")
	default:
	}
}

func TestHub_UnregisterClosesTheClient(t *testing.T) {
	// Given: a registered client
	hub := newTestHub(t)

	client := &Client{send: make(chan []byte, 1), channel: "game:red-seven"}
	hub.register <- client

	// When: the client unregisters
	hub.unregister <- client

	// Then: its send channel closes and later broadcasts go nowhere
	select {
	case _, open := <-client.send:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}

	hub.Broadcast("game:red-seven", []byte(`{"type":"game.move"}`))
}

func TestHub_DropsSlowConsumers(t *testing.T) {
	// Given: a client whose send buffer is already full, next to a healthy one
	hub := newTestHub(t)

	client := &Client{send: make(chan []byte, 1), channel: "game:red-seven"}
	client.send <- []byte("backlog")
	healthy := &Client{send: make(chan []byte, 4), channel: "game:red-seven"}

	hub.register <- client
	hub.register <- healthy

	// When: two more events land on the channel
	hub.Broadcast("game:red-seven", []byte(`{"type":"game.move"}`))
	hub.Broadcast("game:red-seven", []byte(`{"type":"game.move"}`))

	// events are handled in order, so once the healthy client holds both
	// the full client has already been dropped; only then is it safe to
	// touch its buffer
	receive(t, healthy)
	receive(t, healthy)

	// Then: the backlog is still readable, then the channel reports closed
	assert.Equal(t, "backlog", string(receive(t, client)))

	select {
	case _, open := <-client.send:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("slow consumer was never dropped")
	}
}
