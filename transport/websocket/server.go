package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/connectquatro-backend/internal/broadcast"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type authService interface {
	ParsePlayerToken(token string) (string, error)
}

type playerService interface {
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
}

type gameFinder interface {
	GetByID(ctx context.Context, id string) (*entity.Game, error)
}

// Server exposes the push gateway: /ws/lobby streams room directory events,
// /ws/game streams the caller's session channel.
type Server struct {
	logger *slog.Logger

	hub      *Hub
	auth     authService
	players  playerService
	games    gameFinder
	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, hub *Hub, auth authService, players playerService, games gameFinder) *Server {
	return &Server{
		logger:  logger.With("component", "ws-server"),
		hub:     hub,
		auth:    auth,
		players: players,
		games:   games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the REST API carries the credentials, the socket is push-only
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start - starts the WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/lobby", that.handleLobby)
	mux.HandleFunc("/ws/game", that.handleGame)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// handleLobby attaches an anonymous connection to the room directory stream.
func (that *Server) handleLobby(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleLobby")

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	that.attach(newClient(log, conn, broadcast.LobbyRoomsChannel, ""))
}

// handleGame authenticates the caller and attaches the connection to their
// session channel.
func (that *Server) handleGame(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "handleGame")

	playerID, err := that.auth.ParsePlayerToken(req.URL.Query().Get("token"))
	if err != nil {
		http.Error(writer, "invalid token", http.StatusUnauthorized)
		return
	}

	player, err := that.players.GetPlayerByID(req.Context(), playerID)
	if err != nil {
		http.Error(writer, "player not found", http.StatusNotFound)
		return
	}

	if player.GameID == "" {
		http.Error(writer, "player is not in a game", http.StatusConflict)
		return
	}

	game, err := that.games.GetByID(req.Context(), player.GameID)
	if err != nil {
		http.Error(writer, "game not found", http.StatusNotFound)
		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	log.Info("game connection established", "game", game.ID, "player", player.ID)

	that.attach(newClient(log, conn, game.ChannelName(), player.Slug))
}

func (that *Server) attach(client *Client) {
	that.hub.register <- client

	go client.writePump()
	go client.readPump(that.hub)
}
