package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error

	AddOpen(ctx context.Context, game *entity.Game) error
	RemoveOpen(ctx context.Context, game *entity.Game) error
	ListOpen(ctx context.Context) ([]*entity.Game, error)
}

type feedRepo interface {
	Append(ctx context.Context, message *entity.GameFeedMessage) error
	ListByGameID(ctx context.Context, gameID string) ([]*entity.GameFeedMessage, error)
	DeleteByGameID(ctx context.Context, gameID string) error
}

type completedGameRepo interface {
	Save(ctx context.Context, record *entity.CompletedGame) error
	GetByGameID(ctx context.Context, gameID string) (*entity.CompletedGame, error)
}

type eventGateway interface {
	GameStarted(ctx context.Context, game *entity.Game) error
	GameMove(ctx context.Context, game *entity.Game, state *entity.GameState) error
	CountdownUpdate(ctx context.Context, game *entity.Game, playerSlug string, seconds int) error

	PlayerJoined(ctx context.Context, game *entity.Game, player *entity.Player) error
	PlayerQuit(ctx context.Context, game *entity.Game, player *entity.Player) error
	PlayerPromoted(ctx context.Context, game *entity.Game, player *entity.Player) error

	RoomAdd(ctx context.Context, game *entity.Game) error
	RoomRemove(ctx context.Context, game *entity.Game) error
	RoomPlayerCountUpdate(ctx context.Context, game *entity.Game, count int) error

	NewFeedMessage(ctx context.Context, game *entity.Game, message *entity.GameFeedMessage) error
}

type turnTimer interface {
	Arm(game *entity.Game)
}

type GameplayService interface {
	StartGame(ctx context.Context, playerID string) (*entity.Game, error)
	MakeMove(ctx context.Context, playerID string, column int) (*entity.GameState, error)
	LeaveGame(ctx context.Context, playerID string) error
	GameState(ctx context.Context, playerID string) (*entity.GameState, error)
	GameFeed(ctx context.Context, playerID string) ([]*entity.GameFeedMessage, error)
}

type gameplayService struct {
	logger *slog.Logger

	playerRepo    playerRepo
	gameRepo      gameRepo
	feedRepo      feedRepo
	completedRepo completedGameRepo
	gateway       eventGateway
	lobby         LobbyService
	watchdog      turnTimer
	locks         *SessionLocks

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewGameplayService(
	logger *slog.Logger,
	playerRepo playerRepo,
	gameRepo gameRepo,
	feedRepo feedRepo,
	completedRepo completedGameRepo,
	gateway eventGateway,
	lobby LobbyService,
	watchdog turnTimer,
	locks *SessionLocks,
	rng *rand.Rand,
) GameplayService {
	return &gameplayService{
		logger:        logger.With("component", "gameplay"),
		playerRepo:    playerRepo,
		gameRepo:      gameRepo,
		feedRepo:      feedRepo,
		completedRepo: completedRepo,
		gateway:       gateway,
		lobby:         lobby,
		watchdog:      watchdog,
		locks:         locks,
		rng:           rng,
	}
}

// StartGame transitions the requester's lobby into a running session and arms
// the turn watchdog for the first player.
func (that *gameplayService) StartGame(ctx context.Context, playerID string) (*entity.Game, error) {
	player, game, err := that.playerGame(ctx, playerID)
	if err != nil {
		return nil, err
	}

	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	game, err = that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh game: %w", err)
	}

	if !player.IsLobbyOwner {
		return nil, apperror.ErrNotLobbyOwner
	}

	// readiness lives on the player records, the embedded roster may lag
	for ix, gamePlayer := range game.Players {
		fresh, freshErr := that.playerRepo.GetByID(ctx, gamePlayer.ID)
		if freshErr != nil {
			return nil, fmt.Errorf("failed to refresh player: %w", freshErr)
		}
		game.Players[ix] = fresh
	}

	that.rngMu.Lock()
	err = game.Start(that.rng)
	that.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	// turn order and colors live on the player records too
	for _, gamePlayer := range game.Players {
		if err = that.playerRepo.CreateOrUpdate(ctx, gamePlayer); err != nil {
			return nil, fmt.Errorf("failed to update player: %w", err)
		}
	}

	if game.IsPublic {
		if err = that.gameRepo.RemoveOpen(ctx, game); err != nil {
			return nil, err
		}
		if err = that.gateway.RoomRemove(ctx, game); err != nil {
			return nil, err
		}
	}

	if err = that.gateway.GameStarted(ctx, game); err != nil {
		return nil, err
	}

	that.watchdog.Arm(game)

	that.logger.Info("game started", "game", game.ID, "players", len(game.Players))

	return game, nil
}

// MakeMove applies one chip drop for the requesting player: validation, drop,
// turn cycle, game-over evaluation and exactly one tick increment, all under
// the session lock so concurrent moves serialize.
func (that *gameplayService) MakeMove(ctx context.Context, playerID string, column int) (*entity.GameState, error) {
	player, game, err := that.playerGame(ctx, playerID)
	if err != nil {
		return nil, err
	}

	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	game, err = that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh game: %w", err)
	}

	if err = game.ConfirmStartedState(); err != nil {
		return nil, err
	}

	if game.Board.NextToAct != player.ID {
		return nil, apperror.ErrNotYourTurn
	}

	if err = game.Board.DropChip(player.ID, column); err != nil {
		return nil, err
	}

	game.Board.CycleTurn(game.OrderedPlayerIDs())

	winner := game.Board.Winner(game.ArchivedPlayers)
	if winner == nil && len(game.Players) == 1 {
		// everyone else already quit, the mover wins by forfeit
		winner = game.Players[0]
	}

	game.TickCount++

	moveMessage := entity.NewGameFeedMessage(game.ID, entity.FeedTypeDropChip,
		fmt.Sprintf("%s dropped a chip in column %d", player.Handle, column))

	var statusMessage *entity.GameFeedMessage
	if winner != nil {
		game.IsOver = true
		statusMessage = entity.NewGameFeedMessage(game.ID, entity.FeedTypeGameStatus,
			fmt.Sprintf("%s wins", winner.Handle))
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if winner != nil {
		if err = that.completedRepo.Save(ctx, entity.NewCompletedGame(game.ID, winner.ID)); err != nil {
			return nil, err
		}
	}

	if err = that.pushFeedMessage(ctx, game, moveMessage); err != nil {
		return nil, err
	}
	if statusMessage != nil {
		if err = that.pushFeedMessage(ctx, game, statusMessage); err != nil {
			return nil, err
		}
	}

	state := game.State(winner)
	if err = that.gateway.GameMove(ctx, game, state); err != nil {
		return nil, err
	}

	if !game.IsOver {
		that.watchdog.Arm(game)
	}

	return state, nil
}

// LeaveGame dispatches on the session phase: lobby leave, active-game
// forfeit, or detach from a finished game.
func (that *gameplayService) LeaveGame(ctx context.Context, playerID string) error {
	player, game, err := that.playerGame(ctx, playerID)
	if err != nil {
		return err
	}

	switch {
	case !game.IsStarted:
		return that.lobby.RemoveFromLobby(ctx, player, game)
	case !game.IsOver:
		return that.leaveActiveGame(ctx, player, game)
	default:
		return that.leaveCompletedGame(ctx, player, game)
	}
}

func (that *gameplayService) leaveActiveGame(ctx context.Context, player *entity.Player, game *entity.Game) error {
	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	game, err := that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return fmt.Errorf("failed to refresh game: %w", err)
	}

	if !game.IsStarted {
		return fmt.Errorf("%w: game %s is not started", apperror.ErrInvalidSessionState, game.ID)
	}
	if game.IsOver {
		return fmt.Errorf("%w: game %s is already over", apperror.ErrInvalidSessionState, game.ID)
	}

	wasActingPlayer := game.Board.NextToAct == player.ID

	game.RemovePlayer(player.ID)

	player.GameID = ""
	player.IsLobbyOwner = false
	player.IsReady = false
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	quitMessage := entity.NewGameFeedMessage(game.ID, entity.FeedTypePlayerQuit,
		fmt.Sprintf("%s quit", player.Handle))

	var winner *entity.Player
	var statusMessage *entity.GameFeedMessage

	switch {
	case len(game.Players) > 1:
		if wasActingPlayer {
			// the departed player was on turn, hand it to the first
			// remaining player by turn order
			game.Board.CycleTurn(game.OrderedPlayerIDs())
			game.TickCount++
		}
	case len(game.Players) == 1:
		winner = game.Players[0]
		game.IsOver = true
		statusMessage = entity.NewGameFeedMessage(game.ID, entity.FeedTypeGameStatus,
			fmt.Sprintf("%s wins", winner.Handle))
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	if winner != nil {
		if err = that.completedRepo.Save(ctx, entity.NewCompletedGame(game.ID, winner.ID)); err != nil {
			return err
		}
	}

	if err = that.pushFeedMessage(ctx, game, quitMessage); err != nil {
		return err
	}
	if statusMessage != nil {
		if err = that.pushFeedMessage(ctx, game, statusMessage); err != nil {
			return err
		}
	}

	if err = that.gateway.PlayerQuit(ctx, game, player); err != nil {
		return err
	}

	state := game.State(winner)
	if err = that.gateway.GameMove(ctx, game, state); err != nil {
		return err
	}

	if !game.IsOver && wasActingPlayer {
		that.watchdog.Arm(game)
	}

	that.logger.Info("player left active game", "game", game.ID, "player", player.ID, "over", game.IsOver)

	return nil
}

func (that *gameplayService) leaveCompletedGame(ctx context.Context, player *entity.Player, game *entity.Game) error {
	lock := that.locks.Get(game.ID)
	lock.Lock()
	defer lock.Unlock()

	// re-read under the lock so concurrent detaches do not resurrect each
	// other's roster entries
	game, err := that.gameRepo.GetByID(ctx, game.ID)
	if err != nil {
		return fmt.Errorf("failed to refresh game: %w", err)
	}

	if !game.IsOver {
		return fmt.Errorf("%w: game %s is not over", apperror.ErrInvalidSessionState, game.ID)
	}

	game.RemovePlayer(player.ID)
	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	player.GameID = ""
	player.IsLobbyOwner = false
	player.IsReady = false
	if err = that.playerRepo.CreateOrUpdate(ctx, player); err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}

	return nil
}

// GameState rebuilds the derived state for the requesting player, flagging
// whether that player is the one to act.
func (that *gameplayService) GameState(ctx context.Context, playerID string) (*entity.GameState, error) {
	player, game, err := that.playerGame(ctx, playerID)
	if err != nil {
		return nil, err
	}

	// finished games still expose their final state
	if !game.IsStarted || game.Board == nil {
		return nil, apperror.ErrGameIsNotStarted
	}

	var winner *entity.Player
	if game.IsOver {
		record, recErr := that.completedRepo.GetByGameID(ctx, game.ID)
		if recErr == nil && len(record.Winners) > 0 {
			for _, archived := range game.ArchivedPlayers {
				if archived.ID == record.Winners[0] {
					winner = archived
					break
				}
			}
		}
	} else {
		winner = game.Board.Winner(game.ArchivedPlayers)
	}

	state := game.State(winner)
	if winner == nil && game.Board != nil {
		active := game.Board.NextToAct == player.ID
		state.ActivePlayer = &active
	}

	return state, nil
}

// GameFeed returns the session's feed history, oldest first.
func (that *gameplayService) GameFeed(ctx context.Context, playerID string) ([]*entity.GameFeedMessage, error) {
	_, game, err := that.playerGame(ctx, playerID)
	if err != nil {
		return nil, err
	}

	messages, err := that.feedRepo.ListByGameID(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed messages: %w", err)
	}

	return messages, nil
}

func (that *gameplayService) playerGame(ctx context.Context, playerID string) (*entity.Player, *entity.Game, error) {
	player, err := that.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	if player.GameID == "" {
		return nil, nil, apperror.ErrNotInGame
	}

	game, err := that.gameRepo.GetByID(ctx, player.GameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	return player, game, nil
}

func (that *gameplayService) pushFeedMessage(ctx context.Context, game *entity.Game, message *entity.GameFeedMessage) error {
	if err := that.feedRepo.Append(ctx, message); err != nil {
		return err
	}
	if err := that.gateway.NewFeedMessage(ctx, game, message); err != nil {
		return err
	}
	return nil
}
