// internal/models/player.go
package models

// Player is the persisted player record.
type Player struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	TotalScore int    `json:"total_score"`

	// History holds, per room code, the score of each finished turn in order. It feeds the
	// game-end tie break.
	History map[string][]int `json:"history,omitempty"`
}
