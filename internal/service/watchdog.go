package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

// TurnWatchdog enforces the per-turn time limit. Arm schedules a countdown
// for the session's current tick; when it expires without a move having
// bumped the tick counter, the watchdog skips the stalled player itself.
type TurnWatchdog struct {
	logger *slog.Logger

	gameRepo gameRepo
	feedRepo feedRepo
	gateway  eventGateway
	locks    *SessionLocks

	clock        clock.Clock
	pollInterval time.Duration

	ctx context.Context

	mu      sync.Mutex
	cancels map[string]chan struct{}
	wg      sync.WaitGroup
}

func NewTurnWatchdog(
	ctx context.Context,
	logger *slog.Logger,
	gameRepo gameRepo,
	feedRepo feedRepo,
	gateway eventGateway,
	locks *SessionLocks,
	clk clock.Clock,
	pollInterval time.Duration,
) *TurnWatchdog {
	return &TurnWatchdog{
		logger:       logger.With("component", "watchdog"),
		gameRepo:     gameRepo,
		feedRepo:     feedRepo,
		gateway:      gateway,
		locks:        locks,
		clock:        clk,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancels:      make(map[string]chan struct{}),
	}
}

// Arm starts (or restarts) the countdown for the game's current turn. A
// later Arm for the same game supersedes the running countdown.
func (that *TurnWatchdog) Arm(game *entity.Game) {
	that.mu.Lock()
	if cancel, ok := that.cancels[game.ID]; ok {
		close(cancel)
	}
	cancel := make(chan struct{})
	that.cancels[game.ID] = cancel
	that.mu.Unlock()

	that.wg.Add(1)
	go that.watch(game.ID, game.TickCount, game.MaxSecondsPerTurn, cancel)
}

// Stop cancels every running countdown and waits for the watchers to exit.
func (that *TurnWatchdog) Stop() {
	that.mu.Lock()
	for id, cancel := range that.cancels {
		close(cancel)
		delete(that.cancels, id)
	}
	that.mu.Unlock()

	that.wg.Wait()
}

func (that *TurnWatchdog) watch(gameID string, armedTick, maxSeconds int, cancel chan struct{}) {
	defer that.wg.Done()
	defer func() {
		that.mu.Lock()
		if current, ok := that.cancels[gameID]; ok && current == cancel {
			delete(that.cancels, gameID)
		}
		that.mu.Unlock()
	}()

	deadline := that.clock.Now().Add(time.Duration(maxSeconds) * time.Second)

	ticker := that.clock.Ticker(that.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-that.ctx.Done():
			return
		case <-cancel:
			return
		case now := <-ticker.C:
			remaining := int(deadline.Sub(now).Round(time.Second) / time.Second)
			if remaining > 0 {
				that.publishCountdown(gameID, armedTick, remaining)
				continue
			}

			that.forceSkip(gameID, armedTick)

			return
		}
	}
}

func (that *TurnWatchdog) publishCountdown(gameID string, armedTick, remaining int) {
	game, err := that.gameRepo.GetByID(that.ctx, gameID)
	if err != nil {
		that.logger.Error("failed to get game for countdown", "game", gameID, "error", err)
		return
	}

	// a move landed since this countdown was armed, nothing to announce
	if game.TickCount != armedTick || game.IsOver || game.Board == nil {
		return
	}

	player := game.PlayerByID(game.Board.NextToAct)
	if player == nil {
		return
	}

	if err = that.gateway.CountdownUpdate(that.ctx, game, player.Slug, remaining); err != nil {
		that.logger.Error("failed to publish countdown", "game", gameID, "error", err)
	}
}

// forceSkip advances the turn past the stalled player. The tick fence makes
// the skip idempotent: if any move (or another skip) bumped the counter
// after this countdown was armed, the skip is abandoned.
func (that *TurnWatchdog) forceSkip(gameID string, armedTick int) {
	lock := that.locks.Get(gameID)
	lock.Lock()
	defer lock.Unlock()

	game, err := that.gameRepo.GetByID(that.ctx, gameID)
	if err != nil {
		that.logger.Error("failed to get game for skip", "game", gameID, "error", err)
		return
	}

	if !game.IsStarted || game.IsOver || game.Board == nil {
		return
	}
	if game.TickCount != armedTick {
		return
	}

	skipped := game.PlayerByID(game.Board.NextToAct)

	game.Board.CycleTurn(game.OrderedPlayerIDs())
	game.TickCount++

	if err = that.gameRepo.CreateOrUpdate(that.ctx, game); err != nil {
		that.logger.Error("failed to update game after skip", "game", gameID, "error", err)
		return
	}

	if skipped != nil {
		message := entity.NewGameFeedMessage(game.ID, entity.FeedTypeGameStatus,
			fmt.Sprintf("%s ran out of time", skipped.Handle))
		if err = that.feedRepo.Append(that.ctx, message); err != nil {
			that.logger.Error("failed to append skip feed message", "game", gameID, "error", err)
		} else if err = that.gateway.NewFeedMessage(that.ctx, game, message); err != nil {
			that.logger.Error("failed to publish skip feed message", "game", gameID, "error", err)
		}
	}

	if err = that.gateway.GameMove(that.ctx, game, game.State(nil)); err != nil {
		that.logger.Error("failed to publish state after skip", "game", gameID, "error", err)
	}

	that.logger.Info("turn skipped", "game", gameID, "tick", game.TickCount)

	that.Arm(game)
}
