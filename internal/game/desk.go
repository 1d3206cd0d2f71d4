// internal/game/desk.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/unodealer/internal/models"
)

// Desk is the per-room mutable game state. It is loaded from the DeskStore at the start of every
// command, mutated in memory and written back whole.
type Desk struct {
	Room    string `json:"room"`
	Version int64  `json:"version"` // checked on write-back

	Players   []string                 `json:"players"`
	WhiteWild models.WhiteWildRule     `json:"white_wild,omitempty"`
	Hands     map[string][]models.Card `json:"hands"`

	DrawPile    []models.Card `json:"draw_pile"`
	DiscardPile []models.Card `json:"discard_pile"` // last element is the top
	// CurrentCard is the discard top, with Color replaced by the chosen color when covering a wild.
	CurrentCard *models.Card `json:"current_card"`

	TurnDirection bool   `json:"turn_direction"` // true walks Players forward
	NextPlayer    string `json:"next_player"`
	BeforePlayer  string `json:"before_player"`
	TurnActive    bool   `json:"turn_active"`

	PendingDrawCount int            `json:"pending_draw_count"`
	DrawSource       models.Special `json:"draw_source,omitempty"` // card that created the pending draw
	MustDraw         bool           `json:"must_draw"`
	SkipNext         bool           `json:"skip_next"`

	// ActivationCounts holds unresolved white wild binds per player.
	ActivationCounts map[string]int  `json:"activation_counts"`
	UnoDeclared      map[string]bool `json:"uno_declared"`
	AwaitingTimeout  map[string]bool `json:"awaiting_timeout"`
	InterruptLocked  bool            `json:"interrupt_locked"`

	// ColorPending names the player owing a color choice, ColorSource the card that caused it.
	ColorPending string         `json:"color_pending,omitempty"`
	ColorSource  models.Special `json:"color_source,omitempty"`

	// CanPlayDrawCard is set while the turn owner may still play the single card just drawn.
	// HeldCard is that card; it already sits in the owner's hand.
	CanPlayDrawCard bool         `json:"can_play_draw_card"`
	HeldCard        *models.Card `json:"held_card,omitempty"`

	// Challenge context of the last wild draw 4: the discard it covered and the hand it came from.
	ChallengeCard *models.Card  `json:"challenge_card,omitempty"`
	ChallengeHand []models.Card `json:"challenge_hand,omitempty"`

	TurnNumber             int `json:"turn_number"`
	CardsPlayedThisTurn    int `json:"cards_played_this_turn"`
	TurnsPlayedThisTurn    int `json:"turns_played_this_turn"`
	ConsecutiveNoPlayCount int `json:"consecutive_no_play_count"`

	Order map[string]int `json:"order"` // placement in the last finished turn
	Score map[string]int `json:"score"` // score of the last finished turn

	AlreadyPenalizedForUno map[string]bool `json:"already_penalized_for_uno"`
	SpecialLogicUsage      map[string]int  `json:"special_logic_usage"`

	ActivitySeq int64 `json:"activity_seq"`
}

// NewDesk builds an empty desk for a room. Dealer.Deal fills it.
func NewDesk(room string, players []string, whiteWild models.WhiteWildRule) *Desk {
	d := &Desk{
		Room:      room,
		Players:   append([]string(nil), players...),
		WhiteWild: whiteWild,
	}
	d.reset()
	d.SpecialLogicUsage = make(map[string]int)
	return d
}

// reset clears everything that lives for a single turn.
func (d *Desk) reset() {
	d.Hands = make(map[string][]models.Card, len(d.Players))
	for _, p := range d.Players {
		d.Hands[p] = []models.Card{}
	}
	d.DrawPile = nil
	d.DiscardPile = nil
	d.CurrentCard = nil
	d.TurnDirection = true
	d.NextPlayer = ""
	d.BeforePlayer = ""
	d.TurnActive = false
	d.PendingDrawCount = 0
	d.DrawSource = models.SpecialNone
	d.MustDraw = false
	d.SkipNext = false
	d.ActivationCounts = make(map[string]int)
	d.UnoDeclared = make(map[string]bool)
	d.AwaitingTimeout = make(map[string]bool)
	d.InterruptLocked = false
	d.ColorPending = ""
	d.ColorSource = models.SpecialNone
	d.CanPlayDrawCard = false
	d.HeldCard = nil
	d.ChallengeCard = nil
	d.ChallengeHand = nil
	d.CardsPlayedThisTurn = 0
	d.TurnsPlayedThisTurn = 0
	d.ConsecutiveNoPlayCount = 0
	d.AlreadyPenalizedForUno = make(map[string]bool)
}

// IsPlayer reports whether p sits at this desk.
func (d *Desk) IsPlayer(p string) bool {
	_, ok := d.Hands[p]
	return ok
}

func (d *Desk) indexOf(p string) int {
	for i, q := range d.Players {
		if q == p {
			return i
		}
	}
	return -1
}

// PlayerAfter returns the player following p in the current direction, wrapping around.
func (d *Desk) PlayerAfter(p string) string {
	n := len(d.Players)
	i := d.indexOf(p)
	if n == 0 || i < 0 {
		return ""
	}
	if d.TurnDirection {
		return d.Players[(i+1)%n]
	}
	return d.Players[(i-1+n)%n]
}

// ExpectedActor is the player whose deadline runs: the one owing a color, else the turn owner.
func (d *Desk) ExpectedActor() string {
	if !d.TurnActive {
		return ""
	}
	if d.ColorPending != "" {
		return d.ColorPending
	}
	return d.NextPlayer
}

// Top returns the discard top, or nil.
func (d *Desk) Top() *models.Card {
	if len(d.DiscardPile) == 0 {
		return nil
	}
	c := d.DiscardPile[len(d.DiscardPile)-1]
	return &c
}

// handChanged must be called whenever the size of p's hand changes.
func (d *Desk) handChanged(p string) {
	delete(d.AlreadyPenalizedForUno, p)
	if len(d.Hands[p]) != 1 {
		d.UnoDeclared[p] = false
	}
}

// removeFromHand removes one copy of c from p's hand.
func (d *Desk) removeFromHand(p string, c models.Card) bool {
	hand := d.Hands[p]
	for i, h := range hand {
		if h.SameFace(c) {
			d.Hands[p] = append(hand[:i:i], hand[i+1:]...)
			d.handChanged(p)
			return true
		}
	}
	return false
}

// hasCard reports whether p holds a card with c's face.
func (d *Desk) hasCard(p string, c models.Card) bool {
	for _, h := range d.Hands[p] {
		if h.SameFace(c) {
			return true
		}
	}
	return false
}

// refreshMustDraw recomputes MustDraw for the turn owner.
func (d *Desk) refreshMustDraw() {
	d.MustDraw = d.PendingDrawCount > 0 || d.ActivationCounts[d.NextPlayer] > 0
}

// Clone returns a deep copy.
func (d *Desk) Clone() *Desk {
	c := *d
	c.Players = append([]string(nil), d.Players...)
	c.Hands = make(map[string][]models.Card, len(d.Hands))
	for p, h := range d.Hands {
		c.Hands[p] = append([]models.Card(nil), h...)
	}
	c.DrawPile = append([]models.Card(nil), d.DrawPile...)
	c.DiscardPile = append([]models.Card(nil), d.DiscardPile...)
	if d.CurrentCard != nil {
		cc := *d.CurrentCard
		c.CurrentCard = &cc
	}
	if d.HeldCard != nil {
		hc := *d.HeldCard
		c.HeldCard = &hc
	}
	if d.ChallengeCard != nil {
		ch := *d.ChallengeCard
		c.ChallengeCard = &ch
	}
	c.ChallengeHand = append([]models.Card(nil), d.ChallengeHand...)
	c.ActivationCounts = copyInts(d.ActivationCounts)
	c.UnoDeclared = copyBools(d.UnoDeclared)
	c.AwaitingTimeout = copyBools(d.AwaitingTimeout)
	c.AlreadyPenalizedForUno = copyBools(d.AlreadyPenalizedForUno)
	c.SpecialLogicUsage = copyInts(d.SpecialLogicUsage)
	c.Order = copyInts(d.Order)
	c.Score = copyInts(d.Score)
	return &c
}

// CardCount returns the total number of cards on the desk.
func (d *Desk) CardCount() int {
	n := len(d.DrawPile) + len(d.DiscardPile)
	for _, h := range d.Hands {
		n += len(h)
	}
	return n
}

// CheckInvariants verifies the structural invariants of an active turn.
func (d *Desk) CheckInvariants() error {
	if d.PendingDrawCount > 0 && !d.MustDraw {
		return fmt.Errorf("pending draw %d without must draw", d.PendingDrawCount)
	}
	for p, declared := range d.UnoDeclared {
		if declared && len(d.Hands[p]) != 1 {
			return fmt.Errorf("player %s declared uno holding %d cards", p, len(d.Hands[p]))
		}
	}
	if d.TurnActive && !d.InterruptLocked && !d.IsPlayer(d.NextPlayer) {
		return fmt.Errorf("next player %q does not sit at the desk", d.NextPlayer)
	}
	if d.CanPlayDrawCard && d.HeldCard == nil {
		return fmt.Errorf("can play draw card without a held card")
	}
	return nil
}

func copyInts(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBools(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
