package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/connectquatro-backend/internal/broadcast"
)

// personalize rewrites a move event for one receiving connection: the
// active_player flag only makes sense relative to the player behind the
// socket, so it is filled in at delivery time. Other events pass through
// untouched.
func personalize(client *Client, data []byte) []byte {
	if client.playerSlug == "" {
		return data
	}

	var event broadcast.Event
	if err := json.Unmarshal(data, &event); err != nil || event.Type != broadcast.EventGameMove {
		return data
	}

	var payload broadcast.GameMovePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.GameState == nil {
		return data
	}

	if payload.GameState.Winner == nil {
		active := payload.GameState.NextPlayerSlug == client.playerSlug
		payload.GameState.ActivePlayer = &active
	}

	rewritten, err := json.Marshal(broadcast.Event{Type: event.Type, Payload: mustMarshal(payload)})
	if err != nil {
		return data
	}

	return rewritten
}

func mustMarshal(payload broadcast.GameMovePayload) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}
