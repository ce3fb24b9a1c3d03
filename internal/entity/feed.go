package entity

import "time"

// Game feed message types.
const (
	FeedTypeDropChip   = "move-dc"
	FeedTypePlayerQuit = "quit"
	FeedTypeGameStatus = "status"
)

var feedTypeIconTags = map[string]string{
	FeedTypeDropChip:   "fas fa-arrow-alt-circle-down",
	FeedTypePlayerQuit: "fas fa-hand-peace",
	FeedTypeGameStatus: "fas fa-bell",
}

// GameFeedMessage is one append-only entry in a session's activity feed.
type GameFeedMessage struct {
	GameID    string    `json:"game_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

func NewGameFeedMessage(gameID, messageType, message string) *GameFeedMessage {
	return &GameFeedMessage{
		GameID:    gameID,
		Message:   message,
		Type:      messageType,
		CreatedAt: time.Now().UTC(),
	}
}

// IconTag maps the message type to its feed icon.
func (that *GameFeedMessage) IconTag() string {
	return feedTypeIconTags[that.Type]
}
