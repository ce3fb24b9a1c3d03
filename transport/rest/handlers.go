package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type Handlers interface {
	Ping(ctx echo.Context) error

	CreatePlayer(ctx echo.Context) error
	CurrentPlayer(ctx echo.Context) error
	SetReady(ctx echo.Context) error

	CreateLobby(ctx echo.Context) error
	ListOpenGames(ctx echo.Context) error
	JoinGame(ctx echo.Context) error
	StartGame(ctx echo.Context) error
	MakeMove(ctx echo.Context) error
	LeaveGame(ctx echo.Context) error
	GameState(ctx echo.Context) error
	GameFeed(ctx echo.Context) error
}

type playerService interface {
	CreatePlayer(ctx context.Context, handle string) (*entity.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
	SetReady(ctx context.Context, playerID string, ready bool) (*entity.Player, error)
}

type lobbyService interface {
	CreateLobby(ctx context.Context, playerID string, settings entity.GameSettings) (*entity.Game, error)
	JoinGame(ctx context.Context, playerID, slug, joinCode string) (*entity.Game, error)
	ListOpenGames(ctx context.Context) ([]*entity.RoomSummary, error)
}

type gameplayService interface {
	StartGame(ctx context.Context, playerID string) (*entity.Game, error)
	MakeMove(ctx context.Context, playerID string, column int) (*entity.GameState, error)
	LeaveGame(ctx context.Context, playerID string) error
	GameState(ctx context.Context, playerID string) (*entity.GameState, error)
	GameFeed(ctx context.Context, playerID string) ([]*entity.GameFeedMessage, error)
}

type handlers struct {
	logger *slog.Logger

	auth     authService
	players  playerService
	lobby    lobbyService
	gameplay gameplayService
}

func NewHandlers(logger *slog.Logger, auth authService, players playerService, lobby lobbyService, gameplay gameplayService) Handlers {
	return &handlers{
		logger:   logger.With("component", "rest-handlers"),
		auth:     auth,
		players:  players,
		lobby:    lobby,
		gameplay: gameplay,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type createPlayerRequest struct {
	Handle string `json:"handle"`
}

type createPlayerResponse struct {
	Player *entity.Player `json:"player"`
	Token  string         `json:"token"`
}

type setReadyRequest struct {
	Ready bool `json:"ready"`
}

type joinGameRequest struct {
	JoinCode string `json:"join_code"`
}

type makeMoveRequest struct {
	Column int `json:"column"`
}

func (that *handlers) Ping(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}

func (that *handlers) CreatePlayer(ctx echo.Context) error {
	var req createPlayerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	if req.Handle == "" {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "handle is required"})
	}

	player, err := that.players.CreatePlayer(ctx.Request().Context(), req.Handle)
	if err != nil {
		return that.fail(ctx, "CreatePlayer", err)
	}

	token, err := that.auth.GeneratePlayerToken(player.ID)
	if err != nil {
		return that.fail(ctx, "CreatePlayer", err)
	}

	return ctx.JSON(http.StatusCreated, createPlayerResponse{Player: player, Token: token})
}

func (that *handlers) CurrentPlayer(ctx echo.Context) error {
	player, err := that.players.GetPlayerByID(ctx.Request().Context(), playerID(ctx))
	if err != nil {
		return that.fail(ctx, "CurrentPlayer", err)
	}

	return ctx.JSON(http.StatusOK, player)
}

func (that *handlers) SetReady(ctx echo.Context) error {
	var req setReadyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	player, err := that.players.SetReady(ctx.Request().Context(), playerID(ctx), req.Ready)
	if err != nil {
		return that.fail(ctx, "SetReady", err)
	}

	return ctx.JSON(http.StatusOK, player)
}

func (that *handlers) CreateLobby(ctx echo.Context) error {
	var settings entity.GameSettings
	if err := ctx.Bind(&settings); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	game, err := that.lobby.CreateLobby(ctx.Request().Context(), playerID(ctx), settings)
	if err != nil {
		return that.fail(ctx, "CreateLobby", err)
	}

	return ctx.JSON(http.StatusCreated, game)
}

func (that *handlers) ListOpenGames(ctx echo.Context) error {
	rooms, err := that.lobby.ListOpenGames(ctx.Request().Context())
	if err != nil {
		return that.fail(ctx, "ListOpenGames", err)
	}

	return ctx.JSON(http.StatusOK, rooms)
}

func (that *handlers) JoinGame(ctx echo.Context) error {
	var req joinGameRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	game, err := that.lobby.JoinGame(ctx.Request().Context(), playerID(ctx), ctx.Param("slug"), req.JoinCode)
	if err != nil {
		return that.fail(ctx, "JoinGame", err)
	}

	return ctx.JSON(http.StatusOK, game)
}

func (that *handlers) StartGame(ctx echo.Context) error {
	game, err := that.gameplay.StartGame(ctx.Request().Context(), playerID(ctx))
	if err != nil {
		return that.fail(ctx, "StartGame", err)
	}

	return ctx.JSON(http.StatusOK, game)
}

func (that *handlers) MakeMove(ctx echo.Context) error {
	var req makeMoveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	state, err := that.gameplay.MakeMove(ctx.Request().Context(), playerID(ctx), req.Column)
	if err != nil {
		return that.fail(ctx, "MakeMove", err)
	}

	return ctx.JSON(http.StatusOK, state)
}

func (that *handlers) LeaveGame(ctx echo.Context) error {
	if err := that.gameplay.LeaveGame(ctx.Request().Context(), playerID(ctx)); err != nil {
		return that.fail(ctx, "LeaveGame", err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (that *handlers) GameState(ctx echo.Context) error {
	state, err := that.gameplay.GameState(ctx.Request().Context(), playerID(ctx))
	if err != nil {
		return that.fail(ctx, "GameState", err)
	}

	return ctx.JSON(http.StatusOK, state)
}

func (that *handlers) GameFeed(ctx echo.Context) error {
	messages, err := that.gameplay.GameFeed(ctx.Request().Context(), playerID(ctx))
	if err != nil {
		return that.fail(ctx, "GameFeed", err)
	}

	return ctx.JSON(http.StatusOK, messages)
}

// fail maps a service error onto the wire: validation problems are the
// caller's fault, conflicts mean the session moved on, and anything unknown
// stays a 500 with the detail kept server-side. Invariant breaches land in
// the 500 bucket too, a phase mismatch past the service guards is a bug.
func (that *handlers) fail(ctx echo.Context, method string, err error) error {
	status := http.StatusInternalServerError

	switch {
	case apperror.IsValidation(err):
		status = http.StatusBadRequest
	case apperror.IsNotFound(err):
		status = http.StatusNotFound
	case apperror.IsConflict(err):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", method, "error", err)
		return ctx.JSON(status, errorResponse{Error: "internal server error"})
	}

	return ctx.JSON(status, errorResponse{Error: err.Error()})
}
