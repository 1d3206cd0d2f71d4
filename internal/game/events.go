// internal/game/events.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/unodealer/internal/models"
)

// EventType is the outbound protocol event name.
type EventType string

const (
	EventFirstPlayer      EventType = "first-player"
	EventReceiverCard     EventType = "receiver-card"
	EventUpdateColor      EventType = "update-color"
	EventShuffleWild      EventType = "shuffle-wild"
	EventNextPlayer       EventType = "next-player"
	EventPlayCard         EventType = "play-card"
	EventDrawCard         EventType = "draw-card"
	EventPlayDrawCard     EventType = "play-draw-card"
	EventChallenge        EventType = "challenge"
	EventPublicCard       EventType = "public-card"
	EventPointedNotSayUno EventType = "pointed-not-say-uno"
	EventFinishTurn       EventType = "finish-turn"
	EventFinishGame       EventType = "finish-game"
	EventPenalty          EventType = "penalty"
)

// Event is one outbound message. When To is set it is delivered to that player only.
type Event struct {
	Type EventType   `json:"event"`
	To   string      `json:"-"`
	Data interface{} `json:"data"`
}

// --- Event payloads ---

type FirstPlayerData struct {
	FirstPlayer string      `json:"first_player"`
	FirstCard   models.Card `json:"first_card"`
	PlayOrder   []string    `json:"play_order"`
	Turn        int         `json:"turn"`
}

type ReceiverCardData struct {
	CardsReceive []models.Card `json:"cards_receive"`
	IsPenalty    bool          `json:"is_penalty"`
}

type UpdateColorData struct {
	Player string       `json:"player"`
	Color  models.Color `json:"color"`
}

type ShuffleWildData struct {
	CardsReceive       []models.Card  `json:"cards_receive,omitempty"`
	NumberCardOfPlayer map[string]int `json:"number_card_of_player"`
}

type NextPlayerData struct {
	NextPlayer       string         `json:"next_player"`
	BeforePlayer     string         `json:"before_player"`
	CardBefore       *models.Card   `json:"card_before"`
	MustCallDrawCard bool           `json:"must_call_draw_card"`
	DrawReason       models.Special `json:"draw_reason,omitempty"`
	TurnRight        bool           `json:"turn_right"`
	NumberCardPlay   int            `json:"number_card_play"`
	NumberTurnPlay   int            `json:"number_turn_play"`
	CardOfPlayer     []models.Card  `json:"card_of_player,omitempty"`
}

type PlayCardData struct {
	Player      string       `json:"player"`
	CardPlay    models.Card  `json:"card_play"`
	YellUno     bool         `json:"yell_uno"`
	ColorOfWild models.Color `json:"color_of_wild,omitempty"`
}

type DrawCardData struct {
	Player          string `json:"player"`
	CanPlayDrawCard bool   `json:"can_play_draw_card"`
	DrawCount       int    `json:"draw_count"`
}

type PlayDrawCardData struct {
	Player     string       `json:"player"`
	IsPlayCard bool         `json:"is_play_card"`
	CardPlay   *models.Card `json:"card_play,omitempty"`
	YellUno    bool         `json:"yell_uno"`
}

type ChallengeData struct {
	Challenger         string `json:"challenger"`
	Target             string `json:"target"`
	IsChallenge        bool   `json:"is_challenge"`
	IsChallengeSuccess *bool  `json:"is_challenge_success,omitempty"`
}

type PublicCardData struct {
	Player       string        `json:"player"`
	CardOfPlayer []models.Card `json:"card_of_player"`
}

type PointedNotSayUnoData struct {
	Pointer    string `json:"pointer"`
	Target     string `json:"target"`
	HaveSayUno bool   `json:"have_say_uno"`
}

type FinishTurnData struct {
	TurnNo int            `json:"turn_no"`
	Winner string         `json:"winner"`
	Score  map[string]int `json:"score"`
}

type FinishGameData struct {
	Winner  string         `json:"winner"`
	TurnWin map[string]int `json:"turn_win"`
	Order   []string       `json:"order"`
	Score   map[string]int `json:"score"`
}

type PenaltyData struct {
	Player    string `json:"player"`
	Code      string `json:"code"`
	DrawCount int    `json:"draw_count"`
	Error     string `json:"error"`
}

// TimerOp asks the room runtime to arm or cancel a player's deadline once the command commits.
type TimerOp struct {
	Player string
	Arm    bool
}

// TurnResult describes a finished turn.
type TurnResult struct {
	Turn   int
	Winner string // empty when the turn ended without a winner
	Reason string
	Score  map[string]int
}

// Outcome collects everything a command produced. Nothing in it leaves the engine until the desk
// has been written back.
type Outcome struct {
	Events     []Event
	Activities []models.Activity
	Timers     []TimerOp
	Turn       *TurnResult

	// Violation is the rule error that was answered with a penalty, if any.
	Violation error
}

func (o *Outcome) emit(ev Event) {
	o.Events = append(o.Events, ev)
}

func (o *Outcome) arm(d *Desk, p string) {
	d.AwaitingTimeout[p] = true
	o.Timers = append(o.Timers, TimerOp{Player: p, Arm: true})
}

func (o *Outcome) cancel(d *Desk, p string) {
	if !d.AwaitingTimeout[p] {
		return
	}
	delete(d.AwaitingTimeout, p)
	o.Timers = append(o.Timers, TimerOp{Player: p})
}

func (o *Outcome) cancelAll(d *Desk) {
	for p := range d.AwaitingTimeout {
		o.Timers = append(o.Timers, TimerOp{Player: p})
	}
	d.AwaitingTimeout = make(map[string]bool)
}

// record appends an audit entry with the next sequence number of the desk.
func (o *Outcome) record(d *Desk, player, kind string, payload map[string]interface{}) {
	d.ActivitySeq++
	o.Activities = append(o.Activities, models.Activity{
		ID:        uuid.New(),
		Room:      d.Room,
		Seq:       d.ActivitySeq,
		Player:    player,
		Type:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
