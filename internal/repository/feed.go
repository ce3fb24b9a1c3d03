package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type FeedRepository interface {
	Append(ctx context.Context, message *entity.GameFeedMessage) error
	ListByGameID(ctx context.Context, gameID string) ([]*entity.GameFeedMessage, error)
	DeleteByGameID(ctx context.Context, gameID string) error
}

type dbFeed struct {
	client *redis.Client
}

func NewFeedRepository(client *redis.Client) FeedRepository {
	return &dbFeed{
		client: client,
	}
}

func feedKey(gameID string) string { return "feed:game:" + gameID }

func (that *dbFeed) Append(ctx context.Context, message *entity.GameFeedMessage) error {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal feed message: %w", err)
	}

	if err = that.client.RPush(ctx, feedKey(message.GameID), messageJSON).Err(); err != nil {
		return fmt.Errorf("failed to append feed message: %w", err)
	}

	return nil
}

func (that *dbFeed) ListByGameID(ctx context.Context, gameID string) ([]*entity.GameFeedMessage, error) {
	raw, err := that.client.LRange(ctx, feedKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list feed messages: %w", err)
	}

	messages := make([]*entity.GameFeedMessage, 0, len(raw))
	for _, item := range raw {
		var message entity.GameFeedMessage
		if err = json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal feed message: %w", err)
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (that *dbFeed) DeleteByGameID(ctx context.Context, gameID string) error {
	if err := that.client.Del(ctx, feedKey(gameID)).Err(); err != nil {
		return fmt.Errorf("failed to delete game feed: %w", err)
	}

	return nil
}
