package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

// memStore is an in-memory stand-in for the Redis and SQLite repositories.
// Reads and writes round-trip through JSON so every caller gets its own
// copy, the same isolation the real repositories provide.
type memStore struct {
	mu        sync.Mutex
	players   map[string]*entity.Player
	games     map[string]*entity.Game
	slugs     map[string]string
	open      map[string]bool
	feeds     map[string][]*entity.GameFeedMessage
	completed map[string]*entity.CompletedGame
}

func newMemStore() *memStore {
	return &memStore{
		players:   make(map[string]*entity.Player),
		games:     make(map[string]*entity.Game),
		slugs:     make(map[string]string),
		open:      make(map[string]bool),
		feeds:     make(map[string][]*entity.GameFeedMessage),
		completed: make(map[string]*entity.CompletedGame),
	}
}

func clone[T any](in *T) *T {
	raw, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err = json.Unmarshal(raw, out); err != nil {
		panic(err)
	}
	return out
}

func (that *memStore) CreateOrUpdate(ctx context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.games[game.ID] = clone(game)
	that.slugs[game.Slug] = game.ID
	return nil
}

func (that *memStore) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	game, ok := that.games[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}
	return clone(game), nil
}

func (that *memStore) GetBySlug(ctx context.Context, slug string) (*entity.Game, error) {
	that.mu.Lock()
	id, ok := that.slugs[slug]
	that.mu.Unlock()
	if !ok {
		return nil, apperror.ErrGameNotFound
	}
	return that.GetByID(ctx, id)
}

func (that *memStore) DeleteByID(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	if game, ok := that.games[id]; ok {
		delete(that.slugs, game.Slug)
	}
	delete(that.games, id)
	delete(that.open, id)
	return nil
}

func (that *memStore) AddOpen(ctx context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.open[game.ID] = true
	return nil
}

func (that *memStore) RemoveOpen(ctx context.Context, game *entity.Game) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	delete(that.open, game.ID)
	return nil
}

func (that *memStore) ListOpen(ctx context.Context) ([]*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()
	games := make([]*entity.Game, 0, len(that.open))
	for id := range that.open {
		if game, ok := that.games[id]; ok {
			games = append(games, clone(game))
		}
	}
	return games, nil
}

type memPlayerRepo struct {
	store *memStore
}

func (that *memPlayerRepo) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	that.store.players[player.ID] = clone(player)
	return nil
}

func (that *memPlayerRepo) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	player, ok := that.store.players[id]
	if !ok {
		return nil, apperror.ErrPlayerNotFound
	}
	return clone(player), nil
}

func (that *memPlayerRepo) DeleteByID(ctx context.Context, id string) error {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	delete(that.store.players, id)
	return nil
}

type memFeedRepo struct {
	store *memStore
}

func (that *memFeedRepo) Append(ctx context.Context, message *entity.GameFeedMessage) error {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	that.store.feeds[message.GameID] = append(that.store.feeds[message.GameID], clone(message))
	return nil
}

func (that *memFeedRepo) ListByGameID(ctx context.Context, gameID string) ([]*entity.GameFeedMessage, error) {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	messages := make([]*entity.GameFeedMessage, 0, len(that.store.feeds[gameID]))
	for _, message := range that.store.feeds[gameID] {
		messages = append(messages, clone(message))
	}
	return messages, nil
}

func (that *memFeedRepo) DeleteByGameID(ctx context.Context, gameID string) error {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	delete(that.store.feeds, gameID)
	return nil
}

func (that *memStore) feedTypes(gameID string) []string {
	that.mu.Lock()
	defer that.mu.Unlock()
	types := make([]string, 0, len(that.feeds[gameID]))
	for _, message := range that.feeds[gameID] {
		types = append(types, message.Type)
	}
	return types
}

type memCompletedRepo struct {
	store *memStore
}

func (that *memCompletedRepo) Save(ctx context.Context, record *entity.CompletedGame) error {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	that.store.completed[record.GameID] = clone(record)
	return nil
}

func (that *memCompletedRepo) GetByGameID(ctx context.Context, gameID string) (*entity.CompletedGame, error) {
	that.store.mu.Lock()
	defer that.store.mu.Unlock()
	record, ok := that.store.completed[gameID]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}
	return clone(record), nil
}

// recordingGateway captures the event stream instead of publishing to Redis.
type recordingGateway struct {
	mu     sync.Mutex
	events []string
}

func (that *recordingGateway) record(event string) error {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.events = append(that.events, event)
	return nil
}

func (that *recordingGateway) published() []string {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]string(nil), that.events...)
}

func (that *recordingGateway) count(event string) int {
	total := 0
	for _, published := range that.published() {
		if published == event {
			total++
		}
	}
	return total
}

func (that *recordingGateway) GameStarted(ctx context.Context, game *entity.Game) error {
	return that.record("game.started")
}

func (that *recordingGateway) GameMove(ctx context.Context, game *entity.Game, state *entity.GameState) error {
	return that.record("game.move")
}

func (that *recordingGateway) CountdownUpdate(ctx context.Context, game *entity.Game, playerSlug string, seconds int) error {
	return that.record("countdown.update")
}

func (that *recordingGateway) PlayerJoined(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.record("player.joined")
}

func (that *recordingGateway) PlayerQuit(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.record("player.quit")
}

func (that *recordingGateway) PlayerPromoted(ctx context.Context, game *entity.Game, player *entity.Player) error {
	return that.record("player.promoted")
}

func (that *recordingGateway) RoomAdd(ctx context.Context, game *entity.Game) error {
	return that.record("room.add")
}

func (that *recordingGateway) RoomRemove(ctx context.Context, game *entity.Game) error {
	return that.record("room.remove")
}

func (that *recordingGateway) RoomPlayerCountUpdate(ctx context.Context, game *entity.Game, count int) error {
	return that.record("room.player.count.update")
}

func (that *recordingGateway) NewFeedMessage(ctx context.Context, game *entity.Game, message *entity.GameFeedMessage) error {
	return that.record("new.game.feed.message")
}

// recordingTimer counts how often the gameplay service re-arms the countdown.
type recordingTimer struct {
	mu    sync.Mutex
	armed []int
}

func (that *recordingTimer) Arm(game *entity.Game) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.armed = append(that.armed, game.TickCount)
}

func (that *recordingTimer) armedTicks() []int {
	that.mu.Lock()
	defer that.mu.Unlock()
	return append([]int(nil), that.armed...)
}
