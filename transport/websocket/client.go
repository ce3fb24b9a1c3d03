package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Client is one WebSocket connection pinned to a broadcast channel. Game
// connections carry the player's slug so move events can be personalized;
// lobby connections are anonymous.
type Client struct {
	logger *slog.Logger

	conn *websocket.Conn
	send chan []byte

	channel    string
	playerSlug string
}

func newClient(logger *slog.Logger, conn *websocket.Conn, channel, playerSlug string) *Client {
	return &Client{
		logger:     logger,
		conn:       conn,
		send:       make(chan []byte, 256),
		channel:    channel,
		playerSlug: playerSlug,
	}
}

// readPump drains the connection. The bridge is push-only, inbound frames
// are ignored but the pump keeps pong handling and close detection alive.
func (that *Client) readPump(hub *Hub) {
	defer func() {
		hub.unregister <- that
		that.conn.Close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	if err := that.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		that.logger.Error("failed to set read deadline", "error", err)
		return
	}
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := that.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Debug("unexpected close", "error", err)
			}
			return
		}
	}
}

func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		that.conn.Close()
	}()

	for {
		select {
		case message, ok := <-that.send:
			if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// the hub dropped this client
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
