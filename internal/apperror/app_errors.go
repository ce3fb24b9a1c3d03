package apperror

import "errors"

// Validation errors - rejected before any state is touched.
var (
	ErrColumnOutOfRange = errors.New("column is out of range")
	ErrInvalidSettings  = errors.New("invalid game settings")
)

// State-conflict errors - rejected after a state check, no mutation.
var (
	ErrColumnFull         = errors.New("column is full")
	ErrNotYourTurn        = errors.New("it's not your turn")
	ErrGameAlreadyStarted = errors.New("game is already started")
	ErrGameIsNotStarted   = errors.New("game is not started")
	ErrGameFinished       = errors.New("game is already finished")
	ErrNotLobbyOwner      = errors.New("player is not the lobby owner")
	ErrNotEnoughPlayers   = errors.New("game needs at least 2 players to start")
	ErrPlayersNotReady    = errors.New("not all players are ready")
	ErrLobbyFull          = errors.New("lobby is full")
	ErrNotJoinable        = errors.New("lobby is no longer joinable")
	ErrInvalidJoinCode    = errors.New("invalid join code")
	ErrAlreadyInGame      = errors.New("player is already in a game")
	ErrNotInGame          = errors.New("player is not in a game")
)

// Not-found errors.
var (
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
)

// ErrInvalidSessionState marks a caller protocol violation: an operation was
// invoked on a session in a phase that the operation must never see.
var ErrInvalidSessionState = errors.New("invalid session state")

var (
	validationErrors = []error{ErrColumnOutOfRange, ErrInvalidSettings}

	conflictErrors = []error{
		ErrColumnFull, ErrNotYourTurn,
		ErrGameAlreadyStarted, ErrGameIsNotStarted, ErrGameFinished,
		ErrNotLobbyOwner, ErrNotEnoughPlayers, ErrPlayersNotReady,
		ErrLobbyFull, ErrNotJoinable, ErrInvalidJoinCode,
		ErrAlreadyInGame, ErrNotInGame,
	}

	notFoundErrors = []error{ErrGameNotFound, ErrPlayerNotFound}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func IsValidation(err error) bool { return isAny(err, validationErrors) }

func IsConflict(err error) bool { return isAny(err, conflictErrors) }

func IsNotFound(err error) bool { return isAny(err, notFoundErrors) }

func IsInvariant(err error) bool { return errors.Is(err, ErrInvalidSessionState) }
