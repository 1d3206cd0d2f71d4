// internal/game/sync_state.go
package game

import (
	"github.com/jason-s-yu/unodealer/internal/models"
)

// SeatView is the public state of one seat as seen by a requesting player.
type SeatView struct {
	Player        string        `json:"player"`
	HandSize      int           `json:"hand_size"`
	UnoDeclared   bool          `json:"uno_declared"`
	IsCurrentTurn bool          `json:"is_current_turn"`
	Hand          []models.Card `json:"hand,omitempty"` // only for the requester
}

// DeskView is a snapshot of the desk from the perspective of one player. Other hands are reduced
// to their sizes.
type DeskView struct {
	Room            string         `json:"room"`
	Turn            int            `json:"turn"`
	TurnActive      bool           `json:"turn_active"`
	NextPlayer      string         `json:"next_player"`
	BeforePlayer    string         `json:"before_player"`
	TurnRight       bool           `json:"turn_right"`
	CurrentCard     *models.Card   `json:"current_card,omitempty"`
	DrawPileSize    int            `json:"draw_pile_size"`
	DiscardSize     int            `json:"discard_size"`
	MustDraw        bool           `json:"must_draw"`
	ColorPending    string         `json:"color_pending,omitempty"`
	CanPlayDrawCard bool           `json:"can_play_draw_card"`
	Seats           []SeatView     `json:"seats"`
	Score           map[string]int `json:"score,omitempty"`
}

// View builds the snapshot of d for forPlayer. An empty forPlayer reveals no hand.
func (d *Desk) View(forPlayer string) DeskView {
	v := DeskView{
		Room:         d.Room,
		Turn:         d.TurnNumber,
		TurnActive:   d.TurnActive,
		NextPlayer:   d.NextPlayer,
		BeforePlayer: d.BeforePlayer,
		TurnRight:    d.TurnDirection,
		DrawPileSize: len(d.DrawPile),
		DiscardSize:  len(d.DiscardPile),
		MustDraw:     d.MustDraw,
		ColorPending: d.ColorPending,
		Score:        copyInts(d.Score),
	}
	if d.CurrentCard != nil {
		c := *d.CurrentCard
		v.CurrentCard = &c
	}
	for _, p := range d.Players {
		s := SeatView{
			Player:        p,
			HandSize:      len(d.Hands[p]),
			UnoDeclared:   d.UnoDeclared[p],
			IsCurrentTurn: d.TurnActive && p == d.NextPlayer,
		}
		if p == forPlayer {
			s.Hand = append([]models.Card(nil), d.Hands[p]...)
			v.CanPlayDrawCard = d.CanPlayDrawCard && p == d.NextPlayer
		}
		v.Seats = append(v.Seats, s)
	}
	return v
}
