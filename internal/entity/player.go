package entity

// ColorChoices is the palette assigned to players at game start. Its length
// caps the number of players per game.
var ColorChoices = []string{
	"#a80000", // red
	"#c78500", // orange
	"#918d00", // yellow
	"#00803c", // green
	"#0039bf", // blue
	"#6b4b9c", // purple
	"#787878", // gray
	"#5c4300", // brown
}

type Player struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Handle string `json:"handle"`

	GameID       string `json:"game_id,omitempty"`
	IsLobbyOwner bool   `json:"is_lobby_owner,omitempty"`
	IsReady      bool   `json:"is_ready,omitempty"`

	TurnOrder int    `json:"turn_order,omitempty"`
	Color     string `json:"color,omitempty"`
}

// PlayerSummary is the wire shape of a player inside derived game state.
type PlayerSummary struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Handle string `json:"handle,omitempty"`
	Color  string `json:"color,omitempty"`
}

func (that *Player) Summary() *PlayerSummary {
	return &PlayerSummary{
		ID:     that.ID,
		Slug:   that.Slug,
		Handle: that.Handle,
		Color:  that.Color,
	}
}
