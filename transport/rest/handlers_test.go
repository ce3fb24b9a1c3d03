package rest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type fakePlayerService struct {
	createErr error
	player    *entity.Player
}

func (that *fakePlayerService) CreatePlayer(_ context.Context, handle string) (*entity.Player, error) {
	if that.createErr != nil {
		return nil, that.createErr
	}
	return &entity.Player{ID: "p1", Slug: "p1-slug", Handle: handle}, nil
}

func (that *fakePlayerService) GetPlayerByID(context.Context, string) (*entity.Player, error) {
	if that.player == nil {
		return nil, apperror.ErrPlayerNotFound
	}
	return that.player, nil
}

func (that *fakePlayerService) SetReady(_ context.Context, id string, ready bool) (*entity.Player, error) {
	return &entity.Player{ID: id, IsReady: ready}, nil
}

type fakeAuthService struct{}

func (that *fakeAuthService) GeneratePlayerToken(playerID string) (string, error) {
	return "token-" + playerID, nil
}

func (that *fakeAuthService) ParsePlayerToken(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok {
		return "", apperror.ErrPlayerNotFound
	}
	return id, nil
}

type fakeLobbyService struct {
	createErr error
	joinErr   error
}

func (that *fakeLobbyService) CreateLobby(_ context.Context, playerID string, settings entity.GameSettings) (*entity.Game, error) {
	if that.createErr != nil {
		return nil, that.createErr
	}
	return entity.NewGame("g1", "g1-slug", "", settings), nil
}

func (that *fakeLobbyService) JoinGame(_ context.Context, playerID, slug, joinCode string) (*entity.Game, error) {
	if that.joinErr != nil {
		return nil, that.joinErr
	}
	return &entity.Game{ID: "g1", Slug: slug}, nil
}

func (that *fakeLobbyService) ListOpenGames(context.Context) ([]*entity.RoomSummary, error) {
	return []*entity.RoomSummary{{Slug: "g1-slug", Name: "room", PlayerCount: 1}}, nil
}

type fakeGameplayService struct {
	moveErr error
	state   *entity.GameState
}

func (that *fakeGameplayService) StartGame(context.Context, string) (*entity.Game, error) {
	return &entity.Game{ID: "g1", IsStarted: true}, nil
}

func (that *fakeGameplayService) MakeMove(context.Context, string, int) (*entity.GameState, error) {
	if that.moveErr != nil {
		return nil, that.moveErr
	}
	return that.state, nil
}

func (that *fakeGameplayService) LeaveGame(context.Context, string) error {
	return nil
}

func (that *fakeGameplayService) GameState(context.Context, string) (*entity.GameState, error) {
	return that.state, nil
}

func (that *fakeGameplayService) GameFeed(context.Context, string) ([]*entity.GameFeedMessage, error) {
	return []*entity.GameFeedMessage{
		entity.NewGameFeedMessage("g1", entity.FeedTypeGameStatus, "alice wins"),
	}, nil
}

type testServer struct {
	echo *echo.Echo
}

func newTestServer(players playerService, lobby lobbyService, gameplay gameplayService) *testServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := &fakeAuthService{}

	e := echo.New()
	handlers := NewHandlers(logger, auth, players, lobby, gameplay)

	e.POST("/api/players", handlers.CreatePlayer)

	authed := e.Group("/api", PlayerToken(auth))
	authed.POST("/games", handlers.CreateLobby)
	authed.GET("/games", handlers.ListOpenGames)
	authed.POST("/games/:slug/join", handlers.JoinGame)
	authed.POST("/games/move", handlers.MakeMove)
	authed.GET("/games/feed", handlers.GameFeed)

	return &testServer{echo: e}
}

func (that *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	that.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_CreatePlayer(t *testing.T) {
	t.Run("issues a token for a new player", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodPost, "/api/players", "", `{"handle":"alice"}`)

		// Then
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"token":"token-p1"`)
		assert.Contains(t, rec.Body.String(), `"handle":"alice"`)
	})

	t.Run("rejects an empty handle", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodPost, "/api/players", "", `{}`)

		// Then
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlers_Auth(t *testing.T) {
	t.Run("rejects a missing bearer token", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodGet, "/api/games", "", "")

		// Then
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a bad token", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodGet, "/api/games", "garbage", "")

		// Then
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("passes a valid token through", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodGet, "/api/games", "token-p1", "")

		// Then
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"slug":"g1-slug"`)
	})
}

func TestHandlers_ErrorMapping(t *testing.T) {
	t.Run("validation errors map to 400", func(t *testing.T) {
		// Given: a lobby service refusing the settings
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{createErr: apperror.ErrInvalidSettings}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodPost, "/api/games", "token-p1", `{"name":"x"}`)

		// Then
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("conflicts map to 409", func(t *testing.T) {
		// Given: a move out of turn
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{moveErr: apperror.ErrNotYourTurn})

		// When
		rec := srv.do(http.MethodPost, "/api/games/move", "token-p1", `{"column":3}`)

		// Then
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("not-found maps to 404", func(t *testing.T) {
		// Given: a join against an unknown room
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{joinErr: apperror.ErrGameNotFound}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodPost, "/api/games/ghost/join", "token-p1", `{}`)

		// Then
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("session-state breaches fail loudly as 500", func(t *testing.T) {
		// Given: a service guard reporting an impossible phase
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{moveErr: apperror.ErrInvalidSessionState})

		// When
		rec := srv.do(http.MethodPost, "/api/games/move", "token-p1", `{"column":3}`)

		// Then
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unknown errors stay opaque 500s", func(t *testing.T) {
		// Given
		srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{createErr: context.DeadlineExceeded}, &fakeGameplayService{})

		// When
		rec := srv.do(http.MethodPost, "/api/games", "token-p1", `{"name":"x"}`)

		// Then
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "deadline")
	})
}

func TestHandlers_GameFeed(t *testing.T) {
	// Given: a player in a game that already has feed history
	srv := newTestServer(&fakePlayerService{}, &fakeLobbyService{}, &fakeGameplayService{})

	// When
	rec := srv.do(http.MethodGet, "/api/games/feed", "token-p1", "")

	// Then
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice wins")
}
