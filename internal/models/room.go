// internal/models/room.go
package models

import "time"

// RoomStatus is the lifecycle of a dealer room.
type RoomStatus string

const (
	RoomNew      RoomStatus = "NEW"
	RoomStarting RoomStatus = "STARTING"
	RoomFinish   RoomStatus = "FINISH"
)

// Room is the persisted dealer record: which players sit at the table, how many turns are played,
// and the results accumulated so far.
type Room struct {
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Players   []string      `json:"players"`
	Status    RoomStatus    `json:"status"`
	TotalTurn int           `json:"total_turn"`
	WhiteWild WhiteWildRule `json:"white_wild,omitempty"`

	// Rules holds per-room overrides applied on top of the server rule defaults.
	Rules map[string]interface{} `json:"rules,omitempty"`

	// Order lists the winner of each finished turn ("" when a turn ended without a winner).
	Order []string `json:"order"`
	// Score is the cumulative score per player across finished turns.
	Score map[string]int `json:"score"`
	// Winner is set once the game finished.
	Winner string `json:"winner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasPlayer reports whether code sits at this room.
func (r *Room) HasPlayer(code string) bool {
	for _, p := range r.Players {
		if p == code {
			return true
		}
	}
	return false
}
