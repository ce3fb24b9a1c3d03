package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

// Event catalog. Game events go to the per-session channel, room events to
// the global lobby channel.
const (
	EventGameStarted     = "game.started"
	EventGameMove        = "game.move"
	EventCountdownUpdate = "countdown.update"

	EventPlayerJoined   = "player.joined"
	EventPlayerQuit     = "player.quit"
	EventPlayerPromoted = "player.promoted"

	EventRoomAdd               = "room.add"
	EventRoomRemove            = "room.remove"
	EventRoomPlayerCountUpdate = "room.player.count.update"

	EventNewGameFeedMessage = "new.game.feed.message"
)

// LobbyRoomsChannel carries the directory events every lobby page listens to.
const LobbyRoomsChannel = "lobby:rooms"

// Event is the wire envelope published to Redis and relayed to subscribers.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type GameMovePayload struct {
	GameState *entity.GameState `json:"game_state"`
}

type CountdownPayload struct {
	PlayerSlug string `json:"player_slug"`
	Seconds    int    `json:"seconds"`
}

type PlayerEventPayload struct {
	PlayerSlug   string `json:"player_slug"`
	PlayerHandle string `json:"player_handle,omitempty"`
}

type RoomPayload struct {
	Room *entity.RoomSummary `json:"room,omitempty"`
	Slug string              `json:"slug,omitempty"`
	// Count is only set for player count updates.
	Count int `json:"count,omitempty"`
}

type FeedMessagePayload struct {
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	IconTag     string    `json:"icon_tag"`
	CreatedAt   time.Time `json:"created_at"`
}

// Gateway fans session and lobby events out through Redis pub/sub. The
// WebSocket bridge subscribes on the other end and delivers to connections.
type Gateway struct {
	logger *slog.Logger
	client *redis.Client
}

func New(logger *slog.Logger, client *redis.Client) *Gateway {
	return &Gateway{
		logger: logger.With("component", "broadcast"),
		client: client,
	}
}

func (that *Gateway) publish(ctx context.Context, channel, eventType string, payload any) error {
	event := Event{Type: eventType}

	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		event.Payload = payloadJSON
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if err = that.client.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	return nil
}

// Subscribe opens a Redis subscription on the given channel patterns.
func (that *Gateway) Subscribe(ctx context.Context, patterns ...string) *redis.PubSub {
	return that.client.PSubscribe(ctx, patterns...)
}

func (that *Gateway) GameStarted(ctx context.Context, game *entity.Game) error {
	return that.publish(ctx, game.ChannelName(), EventGameStarted, nil)
}

func (that *Gateway) GameMove(ctx context.Context, game *entity.Game, state *entity.GameState) error {
	return that.publish(ctx, game.ChannelName(), EventGameMove, GameMovePayload{GameState: state})
}

func (that *Gateway) CountdownUpdate(ctx context.Context, game *entity.Game, playerSlug string, seconds int) error {
	return that.publish(ctx, game.ChannelName(), EventCountdownUpdate, CountdownPayload{
		PlayerSlug: playerSlug,
		Seconds:    seconds,
	})
}

func (that *Gateway) PlayerJoined(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.publish(ctx, game.ChannelName(), EventPlayerJoined, PlayerEventPayload{
		PlayerSlug:   player.Slug,
		PlayerHandle: player.Handle,
	})
}

func (that *Gateway) PlayerQuit(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.publish(ctx, game.ChannelName(), EventPlayerQuit, PlayerEventPayload{
		PlayerSlug:   player.Slug,
		PlayerHandle: player.Handle,
	})
}

func (that *Gateway) PlayerPromoted(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.publish(ctx, game.ChannelName(), EventPlayerPromoted, PlayerEventPayload{
		PlayerSlug:   player.Slug,
		PlayerHandle: player.Handle,
	})
}

func (that *Gateway) RoomAdd(ctx context.Context, game *entity.Game) error {
	return that.publish(ctx, LobbyRoomsChannel, EventRoomAdd, RoomPayload{Room: game.Summary()})
}

func (that *Gateway) RoomRemove(ctx context.Context, game *entity.Game) error {
	return that.publish(ctx, LobbyRoomsChannel, EventRoomRemove, RoomPayload{Slug: game.Slug})
}

func (that *Gateway) RoomPlayerCountUpdate(ctx context.Context, game *entity.Game, count int) error {
	return that.publish(ctx, LobbyRoomsChannel, EventRoomPlayerCountUpdate, RoomPayload{
		Slug:  game.Slug,
		Count: count,
	})
}

func (that *Gateway) NewFeedMessage(ctx context.Context, game *entity.Game, message *entity.GameFeedMessage) error {
	return that.publish(ctx, game.ChannelName(), EventNewGameFeedMessage, FeedMessagePayload{
		Message:     message.Message,
		MessageType: message.Type,
		IconTag:     message.IconTag(),
		CreatedAt:   message.CreatedAt,
	})
}
