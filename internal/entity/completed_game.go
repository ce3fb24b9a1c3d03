package entity

import "time"

// CompletedGame is the immutable record of a finished session. Winners is
// empty for a draw.
type CompletedGame struct {
	GameID     string    `json:"game_id"`
	Winners    []string  `json:"winners"`
	RecordedAt time.Time `json:"recorded_at"`
}

func NewCompletedGame(gameID string, winners ...string) *CompletedGame {
	return &CompletedGame{
		GameID:     gameID,
		Winners:    winners,
		RecordedAt: time.Now().UTC(),
	}
}
