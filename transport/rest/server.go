package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Server is the REST API: player identity, lobby management and in-game
// actions. Event delivery happens over the WebSocket bridge, not here.
type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

func NewServer(logger *slog.Logger, handlers Handlers, auth authService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	e.GET("/ping", handlers.Ping)

	api := e.Group("/api")
	api.POST("/players", handlers.CreatePlayer)

	authed := api.Group("", PlayerToken(auth))
	authed.GET("/players/me", handlers.CurrentPlayer)
	authed.POST("/players/ready", handlers.SetReady)

	authed.POST("/games", handlers.CreateLobby)
	authed.GET("/games", handlers.ListOpenGames)
	authed.POST("/games/:slug/join", handlers.JoinGame)
	authed.POST("/games/start", handlers.StartGame)
	authed.POST("/games/move", handlers.MakeMove)
	authed.POST("/games/leave", handlers.LeaveGame)
	authed.GET("/games/state", handlers.GameState)
	authed.GET("/games/feed", handlers.GameFeed)

	return &Server{
		logger: logger.With("component", "rest"),
		echo:   e,
	}
}

// Start - starts the HTTP server and shuts it down with the context.
func (that *Server) Start(ctx context.Context, port string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := that.echo.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down http server", "error", err)
		}
	}()

	if err := that.echo.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
