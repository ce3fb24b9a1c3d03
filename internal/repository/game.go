package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

const openGamesKey = "lobby:open"

type GameRepository interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	GetBySlug(ctx context.Context, slug string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error

	AddOpen(ctx context.Context, game *entity.Game) error
	RemoveOpen(ctx context.Context, game *entity.Game) error
	ListOpen(ctx context.Context) ([]*entity.Game, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string { return "game:" + id }

func gameSlugKey(slug string) string { return "gameslug:" + slug }

func (that *dbGame) CreateOrUpdate(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	pipe := that.client.TxPipeline()
	pipe.Set(ctx, gameKey(game.ID), gameJSON, 0)
	pipe.Set(ctx, gameSlugKey(game.Slug), game.ID, 0)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var existingGame entity.Game
	if err = json.Unmarshal([]byte(response), &existingGame); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &existingGame, nil
}

func (that *dbGame) GetBySlug(ctx context.Context, slug string) (*entity.Game, error) {
	id, err := that.client.Get(ctx, gameSlugKey(slug)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve game slug: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	game, err := that.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := that.client.TxPipeline()
	pipe.Del(ctx, gameKey(id))
	pipe.Del(ctx, gameSlugKey(game.Slug))
	pipe.ZRem(ctx, openGamesKey, id)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete game by ID: %w", err)
	}

	return nil
}

// AddOpen lists the game in the public lobby directory, scored by creation
// time so listings come back newest-first.
func (that *dbGame) AddOpen(ctx context.Context, game *entity.Game) error {
	err := that.client.ZAdd(ctx, openGamesKey, redis.Z{
		Score:  float64(game.CreatedAt.UnixNano()),
		Member: game.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add game to lobby directory: %w", err)
	}

	return nil
}

func (that *dbGame) RemoveOpen(ctx context.Context, game *entity.Game) error {
	if err := that.client.ZRem(ctx, openGamesKey, game.ID).Err(); err != nil {
		return fmt.Errorf("failed to remove game from lobby directory: %w", err)
	}

	return nil
}

func (that *dbGame) ListOpen(ctx context.Context) ([]*entity.Game, error) {
	ids, err := that.client.ZRevRange(ctx, openGamesKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list lobby directory: %w", err)
	}

	games := make([]*entity.Game, 0, len(ids))
	for _, id := range ids {
		game, err := that.GetByID(ctx, id)
		if errors.Is(err, apperror.ErrGameNotFound) {
			// stale index entry, drop it
			_ = that.client.ZRem(ctx, openGamesKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	return games, nil
}
