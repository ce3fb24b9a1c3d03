package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
	"github.com/rocketscienceinc/connectquatro-backend/testing/suite"
)

func testGame(id, slug string) *entity.Game {
	return entity.NewGame(id, slug, "", entity.GameSettings{
		Name:              "saturday showdown",
		BoardWidth:        7,
		BoardHeight:       6,
		MaxPlayers:        2,
		MaxToWin:          4,
		MaxSecondsPerTurn: 30,
		IsPublic:          true,
	})
}

func TestGameRepository_CreateOrUpdate(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: a fresh game session
	game := testGame("123", "red-seven")

	// When: CreateOrUpdate is called
	err := gameRepo.CreateOrUpdate(ctx, game)

	// Then: no error should be returned, and the game is stored
	require.NoError(t, err)
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a saved game session
		game := testGame("123", "red-seven")
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		// When: GetByID is called with an existing ID
		retrievedGame, err := gameRepo.GetByID(ctx, game.ID)

		// Then: the retrieved game should match the saved game
		require.NoError(t, err)
		require.Equal(t, game.ID, retrievedGame.ID)
		require.Equal(t, game.Slug, retrievedGame.Slug)
		require.Equal(t, game.BoardWidth, retrievedGame.BoardWidth)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// When: GetByID is called with a non-existent ID
		retrievedGame, err := gameRepo.GetByID(ctx, "9999999")

		// Then: an ErrGameNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		assert.Nil(t, retrievedGame)
	})
}

func TestGameRepository_GetBySlug(t *testing.T) {
	t.Run("GetBySlug_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a saved game session
		game := testGame("123", "red-seven")
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))

		// When: GetBySlug is called with the session's slug
		retrievedGame, err := gameRepo.GetBySlug(ctx, "red-seven")

		// Then: the slug resolves to the same session
		require.NoError(t, err)
		require.Equal(t, game.ID, retrievedGame.ID)
	})

	t.Run("GetBySlug_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// When: GetBySlug is called with an unknown slug
		_, err := gameRepo.GetBySlug(ctx, "no-such-room")

		// Then
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})
}

func TestGameRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: a saved, listed game session
	game := testGame("123", "red-seven")
	require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))
	require.NoError(t, gameRepo.AddOpen(ctx, game))

	// When: DeleteByID is called
	err := gameRepo.DeleteByID(ctx, game.ID)

	// Then: the session, its slug and its directory entry are gone
	require.NoError(t, err)

	_, err = gameRepo.GetByID(ctx, game.ID)
	require.ErrorIs(t, err, apperror.ErrGameNotFound)

	_, err = gameRepo.GetBySlug(ctx, game.Slug)
	require.ErrorIs(t, err, apperror.ErrGameNotFound)

	games, err := gameRepo.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestGameRepository_ListOpen(t *testing.T) {
	t.Run("ListOpen_NewestFirst", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: two listed sessions created at different times
		older := testGame("1", "older-room")
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer := testGame("2", "newer-room")

		require.NoError(t, gameRepo.CreateOrUpdate(ctx, older))
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, newer))
		require.NoError(t, gameRepo.AddOpen(ctx, older))
		require.NoError(t, gameRepo.AddOpen(ctx, newer))

		// When: the directory is listed
		games, err := gameRepo.ListOpen(ctx)

		// Then: the newest session comes first
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, newer.ID, games[0].ID)
		assert.Equal(t, older.ID, games[1].ID)
	})

	t.Run("ListOpen_DropsStaleEntries", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a listed session whose record was deleted directly
		game := testGame("123", "red-seven")
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))
		require.NoError(t, gameRepo.AddOpen(ctx, game))
		require.NoError(t, st.Storage.Del(ctx, "game:"+game.ID).Err())

		// When: the directory is listed
		games, err := gameRepo.ListOpen(ctx)

		// Then: the stale entry is skipped and cleaned up
		require.NoError(t, err)
		assert.Empty(t, games)

		ids, err := st.Storage.ZRange(ctx, "lobby:open", 0, -1).Result()
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("RemoveOpen_DelistsTheSession", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a listed session
		game := testGame("123", "red-seven")
		require.NoError(t, gameRepo.CreateOrUpdate(ctx, game))
		require.NoError(t, gameRepo.AddOpen(ctx, game))

		// When: RemoveOpen is called
		require.NoError(t, gameRepo.RemoveOpen(ctx, game))

		// Then: the directory no longer lists it but the record survives
		games, err := gameRepo.ListOpen(ctx)
		require.NoError(t, err)
		assert.Empty(t, games)

		_, err = gameRepo.GetByID(ctx, game.ID)
		require.NoError(t, err)
	})
}
