package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rocketscienceinc/connectquatro-backend/internal/broadcast"
	"github.com/rocketscienceinc/connectquatro-backend/internal/config"
	"github.com/rocketscienceinc/connectquatro-backend/internal/repository"
	"github.com/rocketscienceinc/connectquatro-backend/internal/repository/storage"
	"github.com/rocketscienceinc/connectquatro-backend/internal/service"
	"github.com/rocketscienceinc/connectquatro-backend/transport/rest"
	"github.com/rocketscienceinc/connectquatro-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	gameRepo := repository.NewGameRepository(redisStorage.Connection)
	feedRepo := repository.NewFeedRepository(redisStorage.Connection)
	completedGameRepo := repository.NewCompletedGameRepository(sqliteStorage.Connection)

	gateway := broadcast.New(logger, redisStorage.Connection)

	locks := service.NewSessionLocks()
	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // shuffles, not secrets

	playerService := service.NewPlayerService(playerRepo)
	authService := service.NewAuthService(conf.JWTSecretKey)
	lobbyService := service.NewLobbyService(logger, playerRepo, gameRepo, feedRepo, gateway, locks, rng)

	watchdog := service.NewTurnWatchdog(ctx, logger, gameRepo, feedRepo, gateway, locks,
		clock.New(), conf.CountdownPollInterval())
	defer watchdog.Stop()

	gameplayService := service.NewGameplayService(logger, playerRepo, gameRepo, feedRepo, completedGameRepo,
		gateway, lobbyService, watchdog, locks, rng)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handlers := rest.NewHandlers(logger, authService, playerService, lobbyService, gameplayService)
		if httpErr := rest.NewServer(logger, handlers, authService).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket bridge
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	bridge := websocket.NewBridge(logger, gateway, hub)
	go func() {
		if bridgeErr := bridge.Run(ctx); bridgeErr != nil {
			log.Error("event bridge error", "error", bridgeErr)
		}
	}()

	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, authService, playerService, gameRepo)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
