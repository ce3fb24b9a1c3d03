package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
	"github.com/rocketscienceinc/connectquatro-backend/internal/entity"
)

type CompletedGameRepository interface {
	Save(ctx context.Context, record *entity.CompletedGame) error
	GetByGameID(ctx context.Context, gameID string) (*entity.CompletedGame, error)
}

type dbCompletedGame struct {
	conn *sql.DB
}

func NewCompletedGameRepository(conn *sql.DB) CompletedGameRepository {
	return &dbCompletedGame{
		conn: conn,
	}
}

func (that *dbCompletedGame) Save(ctx context.Context, record *entity.CompletedGame) error {
	winnersJSON, err := json.Marshal(record.Winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners: %w", err)
	}

	query := `INSERT OR REPLACE INTO completed_games (game_id, winners, recorded_at) VALUES (?, ?, ?)`

	if _, err = that.conn.ExecContext(ctx, query, record.GameID, string(winnersJSON), record.RecordedAt); err != nil {
		return fmt.Errorf("failed to save completed game: %w", err)
	}

	return nil
}

func (that *dbCompletedGame) GetByGameID(ctx context.Context, gameID string) (*entity.CompletedGame, error) {
	query := `SELECT game_id, winners, recorded_at FROM completed_games WHERE game_id = ?`

	record := entity.CompletedGame{}
	var winnersJSON string

	row := that.conn.QueryRowContext(ctx, query, gameID)
	err := row.Scan(&record.GameID, &winnersJSON, &record.RecordedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get completed game: %w", err)
	}

	if err = json.Unmarshal([]byte(winnersJSON), &record.Winners); err != nil {
		return nil, fmt.Errorf("failed to unmarshal winners: %w", err)
	}

	return &record, nil
}
