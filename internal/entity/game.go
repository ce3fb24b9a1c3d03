package entity

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
)

const (
	minBoardDimension = 5
	maxBoardDimension = 20
	minWinLength      = 3
	maxWinLength      = 15
	minPlayers        = 2
)

// GameSettings is the owner-supplied room configuration.
type GameSettings struct {
	Name              string `json:"name"`
	BoardWidth        int    `json:"board_width"`
	BoardHeight       int    `json:"board_height"`
	MaxPlayers        int    `json:"max_players"`
	MaxToWin          int    `json:"max_to_win"`
	MaxSecondsPerTurn int    `json:"max_seconds_per_turn"`
	IsPublic          bool   `json:"is_public"`
}

func (that *GameSettings) Validate() error {
	if that.Name == "" {
		return fmt.Errorf("%w: name is required", apperror.ErrInvalidSettings)
	}

	for _, dim := range []int{that.BoardWidth, that.BoardHeight} {
		if dim < minBoardDimension || dim > maxBoardDimension {
			return fmt.Errorf("%w: board dimensions must be between %d and %d",
				apperror.ErrInvalidSettings, minBoardDimension, maxBoardDimension)
		}
	}

	if that.MaxToWin < minWinLength || that.MaxToWin > maxWinLength {
		return fmt.Errorf("%w: win length must be between %d and %d",
			apperror.ErrInvalidSettings, minWinLength, maxWinLength)
	}

	if that.MaxToWin > max(that.BoardWidth, that.BoardHeight) {
		return fmt.Errorf("%w: board too small for win length %d",
			apperror.ErrInvalidSettings, that.MaxToWin)
	}

	if that.MaxPlayers < minPlayers || that.MaxPlayers > len(ColorChoices) {
		return fmt.Errorf("%w: player count must be between %d and %d",
			apperror.ErrInvalidSettings, minPlayers, len(ColorChoices))
	}

	if that.MaxSecondsPerTurn <= 0 {
		return fmt.Errorf("%w: turn timeout must be positive", apperror.ErrInvalidSettings)
	}

	return nil
}

// Game is one session from lobby creation through completion. IsStarted and
// IsOver only ever flip false to true; TickCount increments exactly once per
// committed turn transition.
type Game struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`

	IsPublic bool   `json:"is_public"`
	JoinCode string `json:"join_code,omitempty"`

	IsStarted bool `json:"is_started"`
	IsOver    bool `json:"is_over"`

	MaxPlayers        int `json:"max_players"`
	BoardWidth        int `json:"board_width"`
	BoardHeight       int `json:"board_height"`
	MaxToWin          int `json:"max_to_win"`
	MaxSecondsPerTurn int `json:"max_seconds_per_turn"`

	TickCount int `json:"tick_count"`

	Players         []*Player `json:"players,omitempty"`
	ArchivedPlayers []*Player `json:"archived_players,omitempty"`

	Board *Board `json:"board,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func NewGame(id, slug, joinCode string, settings GameSettings) *Game {
	return &Game{
		ID:                id,
		Slug:              slug,
		Name:              settings.Name,
		IsPublic:          settings.IsPublic,
		JoinCode:          joinCode,
		MaxPlayers:        settings.MaxPlayers,
		BoardWidth:        settings.BoardWidth,
		BoardHeight:       settings.BoardHeight,
		MaxToWin:          settings.MaxToWin,
		MaxSecondsPerTurn: settings.MaxSecondsPerTurn,
		CreatedAt:         time.Now().UTC(),
	}
}

func (that *Game) IsPregame() bool {
	return !that.IsStarted && !that.IsOver
}

func (that *Game) IsFull() bool {
	return len(that.Players) >= that.MaxPlayers
}

// IsListable reports whether the game belongs in the public lobby directory.
func (that *Game) IsListable() bool {
	return that.IsPublic && that.IsPregame() && !that.IsFull()
}

// ChannelName is the per-session broadcast channel.
func (that *Game) ChannelName() string {
	return "game:" + that.Slug
}

// ConfirmStartedState - confirms the game accepts in-game moves.
func (that *Game) ConfirmStartedState() error {
	switch {
	case !that.IsStarted:
		return apperror.ErrGameIsNotStarted
	case that.IsOver:
		return apperror.ErrGameFinished
	default:
		return nil
	}
}

// Start transitions the session from pre-game to started: shuffled turn
// order, a unique color per player, the archived roster snapshot and an empty
// board. The randomness source is injected so starts are reproducible.
func (that *Game) Start(rng *rand.Rand) error {
	if that.IsStarted {
		return apperror.ErrGameAlreadyStarted
	}
	if len(that.Players) < minPlayers {
		return apperror.ErrNotEnoughPlayers
	}

	for _, player := range that.Players {
		if !player.IsLobbyOwner && !player.IsReady {
			return fmt.Errorf("%w: %s", apperror.ErrPlayersNotReady, player.Handle)
		}
	}

	colors := append([]string(nil), ColorChoices...)
	rng.Shuffle(len(colors), func(i, j int) {
		colors[i], colors[j] = colors[j], colors[i]
	})

	rng.Shuffle(len(that.Players), func(i, j int) {
		that.Players[i], that.Players[j] = that.Players[j], that.Players[i]
	})

	for ix, player := range that.Players {
		player.TurnOrder = ix + 1
		player.Color = colors[ix]
	}

	that.ArchivedPlayers = make([]*Player, len(that.Players))
	copy(that.ArchivedPlayers, that.Players)

	that.IsStarted = true
	that.Board = NewBoard(that.BoardWidth, that.BoardHeight, that.MaxToWin, that.Players[0].ID)

	return nil
}

// OrderedPlayerIDs returns active player ids sorted by turn order.
func (that *Game) OrderedPlayerIDs() []string {
	ordered := append([]*Player(nil), that.Players...)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].TurnOrder < ordered[j-1].TurnOrder; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	ids := make([]string, len(ordered))
	for ix, player := range ordered {
		ids[ix] = player.ID
	}
	return ids
}

func (that *Game) PlayerByID(id string) *Player {
	for _, player := range that.Players {
		if player.ID == id {
			return player
		}
	}
	return nil
}

// RemovePlayer drops the player from the active roster. The archived roster
// is left untouched.
func (that *Game) RemovePlayer(id string) {
	players := that.Players[:0]
	for _, player := range that.Players {
		if player.ID != id {
			players = append(players, player)
		}
	}
	that.Players = players
}

// GameState is the derived state fanned out after every turn transition.
// ActivePlayer is relative to the receiving connection and filled in at
// delivery time.
type GameState struct {
	BoardList      [][]string       `json:"board_list"`
	Players        []*PlayerSummary `json:"players"`
	Winner         *PlayerSummary   `json:"winner"`
	GameOver       bool             `json:"game_over"`
	NextPlayerSlug string           `json:"next_player_slug,omitempty"`
	ActivePlayer   *bool            `json:"active_player,omitempty"`
}

// State builds the derived game state. The winner, if any, must be resolved
// by the caller since it may come from the board scan or from a forfeit.
func (that *Game) State(winner *Player) *GameState {
	state := &GameState{
		GameOver: that.IsOver,
	}

	if that.Board != nil {
		state.BoardList = that.Board.Cells
	}

	if winner != nil {
		state.Winner = winner.Summary()
	} else if that.Board != nil {
		if nextPlayer := that.PlayerByID(that.Board.NextToAct); nextPlayer != nil {
			state.NextPlayerSlug = nextPlayer.Slug
		}
	}

	state.Players = make([]*PlayerSummary, 0, len(that.Players))
	for _, player := range that.Players {
		state.Players = append(state.Players, player.Summary())
	}

	return state
}

// RoomSummary is a lobby directory entry as seen by the room list.
type RoomSummary struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	BoardWidth  int    `json:"board_width"`
	BoardHeight int    `json:"board_height"`
	MaxToWin    int    `json:"max_to_win"`
}

func (that *Game) Summary() *RoomSummary {
	return &RoomSummary{
		Name:        that.Name,
		Slug:        that.Slug,
		PlayerCount: len(that.Players),
		MaxPlayers:  that.MaxPlayers,
		BoardWidth:  that.BoardWidth,
		BoardHeight: that.BoardHeight,
		MaxToWin:    that.MaxToWin,
	}
}
