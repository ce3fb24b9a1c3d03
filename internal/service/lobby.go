package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
	"github.com/rocketscienceinc/connectquatro-backend/internal/pkg"
)

type LobbyService interface {
	CreateLobby(ctx context.Context, playerID string, settings entity.GameSettings) (*entity.Game, error)
	JoinGame(ctx context.Context, playerID, slug, joinCode string) (*entity.Game, error)
	ListOpenGames(ctx context.Context) ([]*entity.RoomSummary, error)

	RemoveFromLobby(ctx context.Context, player *entity.Player, game *entity.Game) error
}

type lobbyService struct {
	logger *slog.Logger

	playerRepo playerRepo
	gameRepo   gameRepo
	feedRepo   feedRepo
	gateway    eventGateway
	locks      *SessionLocks

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewLobbyService(
	logger *slog.Logger,
	playerRepo playerRepo,
	gameRepo gameRepo,
	feedRepo feedRepo,
	gateway eventGateway,
	locks *SessionLocks,
	rng *rand.Rand,
) LobbyService {
	return &lobbyService{
		logger:     logger.With("component", "lobby"),
		playerRepo: playerRepo,
		gameRepo:   gameRepo,
		feedRepo:   feedRepo,
		gateway:    gateway,
		locks:      locks,
		rng:        rng,
	}
}

func (that *lobbyService) CreateLobby(ctx context.Context, playerID string, settings entity.GameSettings) (*entity.Game, error) {
	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.GameID != "" {
		return nil, apperror.ErrAlreadyInGame
	}

	if err = settings.Validate(); err != nil {
		return nil, err
	}

	joinCode := ""
	if !settings.IsPublic {
		joinCode = pkg.GenerateJoinCode()
	}

	game := entity.NewGame(pkg.GenerateGameID(), pkg.GenerateSlug(), joinCode, settings)

	player.GameID = game.ID
	player.IsLobbyOwner = true
	game.Players = []*entity.Player{player}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if game.IsPublic {
		if err = that.gameRepo.AddOpen(ctx, game); err != nil {
			return nil, err
		}
		if err = that.gateway.RoomAdd(ctx, game); err != nil {
			return nil, err
		}
	}

	that.logger.Info("lobby created", "game", game.ID, "slug", game.Slug, "public", game.IsPublic)

	return game, nil
}

func (that *lobbyService) JoinGame(ctx context.Context, playerID, slug, joinCode string) (*entity.Game, error) {
	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.GameID != "" {
		return nil, apperror.ErrAlreadyInGame
	}

	game, err := that.gameRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get game by slug: %w", err)
	}

	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	// re-read under the lock, a concurrent join may have filled the room
	game, err = that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh game: %w", err)
	}

	if game.IsStarted || game.IsOver {
		return nil, apperror.ErrNotJoinable
	}
	if game.IsFull() {
		return nil, apperror.ErrLobbyFull
	}
	if !game.IsPublic && joinCode != game.JoinCode {
		return nil, apperror.ErrInvalidJoinCode
	}

	player.GameID = game.ID
	game.Players = append(game.Players, player)

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	if err = that.gateway.PlayerJoined(ctx, game, player); err != nil {
		return nil, err
	}

	if game.IsFull() {
		if err = that.gameRepo.RemoveOpen(ctx, game); err != nil {
			return nil, err
		}
		if err = that.gateway.RoomRemove(ctx, game); err != nil {
			return nil, err
		}
	} else if game.IsPublic {
		if err = that.gateway.RoomPlayerCountUpdate(ctx, game, len(game.Players)); err != nil {
			return nil, err
		}
	}

	return game, nil
}

func (that *lobbyService) ListOpenGames(ctx context.Context) ([]*entity.RoomSummary, error) {
	games, err := that.gameRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open games: %w", err)
	}

	rooms := make([]*entity.RoomSummary, 0, len(games))
	for _, game := range games {
		if !game.IsListable() {
			continue
		}
		rooms = append(rooms, game.Summary())
	}

	return rooms, nil
}

// RemoveFromLobby handles the pre-game leave path: roster removal, session
// deletion when emptied, random owner promotion otherwise, and lobby
// directory upkeep. Callers must ensure the session lock is not already held.
func (that *lobbyService) RemoveFromLobby(ctx context.Context, player *entity.Player, game *entity.Game) error {
	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	// re-read under the lock, a concurrent leave or join may have rewritten
	// the roster since the caller loaded the game
	game, err := that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return fmt.Errorf("failed to refresh game: %w", err)
	}

	if game.IsStarted || game.IsOver {
		return fmt.Errorf("%w: game %s is not in pre-game", apperror.ErrInvalidSessionState, game.ID)
	}

	wasFull := game.IsFull()
	wasOwner := player.IsLobbyOwner

	game.RemovePlayer(player.ID)

	player.GameID = ""
	player.IsLobbyOwner = false
	player.IsReady = false
	if err := that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	if len(game.Players) == 0 {
		if game.IsPublic {
			if err := that.gateway.RoomRemove(ctx, game); err != nil {
				return err
			}
		}
		if err := that.gameRepo.DeleteByID(ctx, game.ID); err != nil {
			return fmt.Errorf("failed to delete empty game: %w", err)
		}
		if err := that.feedRepo.DeleteByGameID(ctx, game.ID); err != nil {
			return err
		}
		that.locks.Forget(game.ID)

		that.logger.Info("empty lobby deleted", "game", game.ID)

		return nil
	}

	if wasOwner {
		that.rngMu.Lock()
		promoted := game.Players[that.rng.Intn(len(game.Players))]
		that.rngMu.Unlock()

		promoted.IsLobbyOwner = true
		if err := that.playerRepo.CreateOrUpdate(ctx, promoted); err != nil {
			return fmt.Errorf("failed to update promoted player: %w", err)
		}
		if err := that.gateway.PlayerPromoted(ctx, game, promoted); err != nil {
			return err
		}

		that.logger.Info("lobby owner promoted", "game", game.ID, "player", promoted.ID)
	}

	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	if err := that.gateway.PlayerQuit(ctx, game, player); err != nil {
		return err
	}

	if game.IsPublic {
		if wasFull {
			// capacity freed, the room is discoverable again
			if err := that.gameRepo.AddOpen(ctx, game); err != nil {
				return err
			}
			if err := that.gateway.RoomAdd(ctx, game); err != nil {
				return err
			}
		} else if err := that.gateway.RoomPlayerCountUpdate(ctx, game, len(game.Players)); err != nil {
			return err
		}
	}

	return nil
}
