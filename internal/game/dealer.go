// internal/game/dealer.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/unodealer/internal/models"
	"github.com/sirupsen/logrus"
)

// Dealer applies the game rules to a desk. It holds no per-room state: every call receives the
// desk it works on and reports what happened through an Outcome.
type Dealer struct {
	rules Rules
	rng   *rand.Rand
	log   *logrus.Entry
}

// NewDealer builds a dealer. A nil rng is seeded from rules.Seed, or from the clock when that is 0.
// The rng is not safe for concurrent use; callers serialize access per dealer.
func NewDealer(rules Rules, rng *rand.Rand) *Dealer {
	if rng == nil {
		seed := rules.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	return &Dealer{
		rules: rules,
		rng:   rng,
		log:   logrus.WithField("component", "dealer"),
	}
}

// Rules returns the rule set the dealer plays with.
func (dl *Dealer) Rules() Rules {
	return dl.rules
}

// WithLogger replaces the logger used for engine diagnostics.
func (dl *Dealer) WithLogger(l *logrus.Entry) *Dealer {
	dl.log = l
	return dl
}

// Deal starts the next turn: a fresh shuffled deck, HandSize cards to each player in seat order
// and one opening discard. The first player rotates with the turn number.
func (dl *Dealer) Deal(d *Desk) (*Outcome, error) {
	if len(d.Players) < 2 {
		return nil, violation(ErrRoomUnavailable, "%d players seated", len(d.Players))
	}
	deck := NewDeck(d.WhiteWild)
	if need := dl.rules.HandSize*len(d.Players) + 1; len(deck) < need {
		return nil, violation(ErrResourceExhaustion, "deck of %d cannot deal %d", len(deck), need)
	}

	d.reset()
	d.TurnNumber++
	Shuffle(dl.rng, deck, dl.rules.ShuffleIterations)
	d.DrawPile = deck

	for round := 0; round < dl.rules.HandSize; round++ {
		for _, p := range d.Players {
			d.Hands[p] = append(d.Hands[p], d.DrawPile[0])
			d.DrawPile = d.DrawPile[1:]
		}
	}

	first, err := dl.turnUpFirstCard(d)
	if err != nil {
		return nil, err
	}

	o := &Outcome{}
	starter := d.Players[(d.TurnNumber-1)%len(d.Players)]
	d.NextPlayer = starter
	d.TurnActive = true

	o.emit(Event{Type: EventFirstPlayer, Data: FirstPlayerData{
		FirstPlayer: starter,
		FirstCard:   first,
		PlayOrder:   append([]string(nil), d.Players...),
		Turn:        d.TurnNumber,
	}})
	for _, p := range d.Players {
		o.emit(Event{Type: EventReceiverCard, To: p, Data: ReceiverCardData{
			CardsReceive: append([]models.Card(nil), d.Hands[p]...),
		}})
	}
	o.record(d, "", "deal", map[string]interface{}{
		"turn":        d.TurnNumber,
		"firstPlayer": starter,
		"firstCard":   first.String(),
	})

	delta := firstCardEffect(first)
	if delta.Reverse {
		d.TurnDirection = !d.TurnDirection
	}
	if delta.SkipNext {
		d.BeforePlayer = starter
		d.NextPlayer = d.PlayerAfter(starter)
	}
	if delta.AddDraw > 0 {
		d.PendingDrawCount = delta.AddDraw
		d.DrawSource = delta.DrawSource
	}
	d.refreshMustDraw()

	if delta.NeedsColor {
		d.ColorPending = starter
		d.ColorSource = first.Special
		d.InterruptLocked = true
		o.arm(d, starter)
		return o, nil
	}
	dl.announceNext(d, o)
	o.arm(d, d.NextPlayer)
	return o, nil
}

const maxOpeningAttempts = 1000

// turnUpFirstCard moves the opening discard off the draw pile. Cards that may not open a turn go
// back into the pile, which is reshuffled before the next attempt.
func (dl *Dealer) turnUpFirstCard(d *Desk) (models.Card, error) {
	for attempt := 0; attempt < maxOpeningAttempts; attempt++ {
		c := d.DrawPile[0]
		d.DrawPile = d.DrawPile[1:]
		if canOpen(c) {
			d.DiscardPile = []models.Card{c}
			cur := c
			d.CurrentCard = &cur
			return c, nil
		}
		d.DrawPile = append(d.DrawPile, c)
		Shuffle(dl.rng, d.DrawPile, dl.rules.ShuffleIterations)
	}
	return models.Card{}, fmt.Errorf("no opening card found in %d cards", len(d.DrawPile))
}

// Apply validates cmd against d and executes it. A returned error means the command was rejected
// and d is unchanged. A penalized violation is not an error: it is executed as a penalty and
// reported in Outcome.Violation.
func (dl *Dealer) Apply(d *Desk, cmd Command) (*Outcome, error) {
	if cmd.Kind == CmdPlayDrawCard && cmd.IsPlay && d.HeldCard != nil {
		held := *d.HeldCard
		cmd.Card = &held
	}
	if err := validate(d, cmd, dl.rules); err != nil {
		if !penalized(err) || !d.TurnActive || !d.IsPlayer(cmd.Player) {
			return nil, err
		}
		o := &Outcome{Violation: err}
		dl.penalize(d, cmd.Player, err, o)
		return o, nil
	}

	o := &Outcome{}
	switch cmd.Kind {
	case CmdPlayCard:
		dl.playCard(d, cmd, o)
	case CmdDrawCard:
		dl.drawCard(d, cmd, o)
	case CmdPlayDrawCard:
		dl.playDrawCard(d, cmd, o)
	case CmdChallenge:
		dl.challenge(d, cmd, o)
	case CmdPointNotSayUno:
		dl.pointNotSayUno(d, cmd, o)
	case CmdSpecialLogic:
		dl.specialLogic(d, cmd, o)
	case CmdColorOfWild:
		dl.colorOfWild(d, cmd.Player, cmd.Color, o)
	case CmdTimeout:
		dl.timeout(d, cmd.Player, o)
	}
	return o, nil
}

// advance hands the turn to the next player, consuming a pending skip.
func (dl *Dealer) advance(d *Desk, o *Outcome) {
	cur := d.NextPlayer
	o.cancel(d, cur)
	next := d.PlayerAfter(cur)
	if d.SkipNext {
		next = d.PlayerAfter(next)
		d.SkipNext = false
	}
	d.BeforePlayer = cur
	d.NextPlayer = next
	d.CanPlayDrawCard = false
	d.HeldCard = nil
	d.TurnsPlayedThisTurn++
	d.refreshMustDraw()
	dl.announceNext(d, o)
	o.arm(d, next)
}

// announceNext broadcasts the turn owner, and sends the owner a private copy with their hand.
func (dl *Dealer) announceNext(d *Desk, o *Outcome) {
	data := nextPlayerData(d)
	o.emit(Event{Type: EventNextPlayer, Data: data})

	private := data
	private.CardOfPlayer = append([]models.Card(nil), d.Hands[d.NextPlayer]...)
	o.emit(Event{Type: EventNextPlayer, To: d.NextPlayer, Data: private})
}

func nextPlayerData(d *Desk) NextPlayerData {
	data := NextPlayerData{
		NextPlayer:       d.NextPlayer,
		BeforePlayer:     d.BeforePlayer,
		CardBefore:       d.CurrentCard,
		MustCallDrawCard: d.MustDraw,
		TurnRight:        d.TurnDirection,
		NumberCardPlay:   d.CardsPlayedThisTurn,
		NumberTurnPlay:   d.TurnsPlayedThisTurn,
	}
	switch {
	case d.PendingDrawCount > 0:
		data.DrawReason = d.DrawSource
	case d.ActivationCounts[d.NextPlayer] > 0:
		data.DrawReason = models.SpecialWhiteWild
	}
	return data
}

// drawCards moves up to n cards from the draw pile into p's hand, reshuffling the discards when
// the pile runs dry. It returns ErrResourceExhaustion when fewer than n cards could be drawn.
func (dl *Dealer) drawCards(d *Desk, p string, n int, penalty bool, o *Outcome) ([]models.Card, error) {
	drawn := make([]models.Card, 0, n)
	for len(drawn) < n {
		if len(d.DrawPile) == 0 && !dl.reshuffle(d, o) {
			break
		}
		drawn = append(drawn, d.DrawPile[0])
		d.DrawPile = d.DrawPile[1:]
	}
	if len(drawn) > 0 {
		d.Hands[p] = append(d.Hands[p], drawn...)
		d.handChanged(p)
		d.UnoDeclared[p] = false
		o.emit(Event{Type: EventReceiverCard, To: p, Data: ReceiverCardData{
			CardsReceive: append([]models.Card(nil), drawn...),
			IsPenalty:    penalty,
		}})
	}
	if len(drawn) < n {
		return drawn, violation(ErrResourceExhaustion, "%s drew %d of %d", p, len(drawn), n)
	}
	return drawn, nil
}

// reshuffle turns every discard except the top into a new draw pile.
func (dl *Dealer) reshuffle(d *Desk, o *Outcome) bool {
	if len(d.DiscardPile) <= 1 {
		return false
	}
	top := d.DiscardPile[len(d.DiscardPile)-1]
	rest := d.DiscardPile[:len(d.DiscardPile)-1]
	d.DrawPile = append(d.DrawPile, rest...)
	d.DiscardPile = []models.Card{top}
	Shuffle(dl.rng, d.DrawPile, dl.rules.ShuffleIterations)
	dl.log.WithFields(logrus.Fields{"room": d.Room, "cards": len(d.DrawPile)}).Debug("reshuffled discard pile")
	o.record(d, "", "reshuffle", map[string]interface{}{"cards": len(d.DrawPile)})
	return true
}

// capped limits a penalty draw so p's hand never exceeds MaxHandSize.
func (dl *Dealer) capped(d *Desk, p string, n int) int {
	room := dl.rules.MaxHandSize - len(d.Hands[p])
	if room < 0 {
		room = 0
	}
	if n > room {
		return room
	}
	return n
}

// shuffleHands pools every non-empty hand, shuffles the pool and deals it back round-robin
// starting from the player after the one who played the wild shuffle.
func (dl *Dealer) shuffleHands(d *Desk, player string, o *Outcome) {
	var recipients []string
	start := d.indexOf(d.PlayerAfter(player))
	var pool []models.Card
	for i := 0; i < len(d.Players); i++ {
		idx := (start + i) % len(d.Players)
		if !d.TurnDirection {
			idx = (start - i + len(d.Players)) % len(d.Players)
		}
		p := d.Players[idx]
		if len(d.Hands[p]) == 0 {
			continue
		}
		recipients = append(recipients, p)
		pool = append(pool, d.Hands[p]...)
		d.Hands[p] = []models.Card{}
	}
	if len(recipients) == 0 {
		return
	}
	Shuffle(dl.rng, pool, dl.rules.ShuffleIterations)
	for i, c := range pool {
		r := recipients[i%len(recipients)]
		d.Hands[r] = append(d.Hands[r], c)
	}

	counts := make(map[string]int, len(d.Players))
	for _, p := range d.Players {
		counts[p] = len(d.Hands[p])
	}
	for _, p := range recipients {
		d.handChanged(p)
		d.UnoDeclared[p] = len(d.Hands[p]) == 1
	}
	for _, p := range d.Players {
		o.emit(Event{Type: EventShuffleWild, To: p, Data: ShuffleWildData{
			CardsReceive:       append([]models.Card(nil), d.Hands[p]...),
			NumberCardOfPlayer: counts,
		}})
	}
	o.record(d, player, "shuffle_wild", map[string]interface{}{"counts": counts})
}

// finishTurn ends the turn, scoring it. An empty winner ends the turn without one.
func (dl *Dealer) finishTurn(d *Desk, winner, reason string, o *Outcome) {
	o.cancelAll(d)
	score := TurnScores(d.Players, d.Hands, winner)
	d.Score = score
	d.Order = Placement(d.Players, score)
	d.TurnActive = false
	d.InterruptLocked = false
	d.ColorPending = ""
	d.ColorSource = models.SpecialNone
	d.PendingDrawCount = 0
	d.DrawSource = models.SpecialNone
	d.MustDraw = false
	d.SkipNext = false
	d.CanPlayDrawCard = false
	d.HeldCard = nil

	o.Turn = &TurnResult{Turn: d.TurnNumber, Winner: winner, Reason: reason, Score: copyInts(score)}
	o.emit(Event{Type: EventFinishTurn, Data: FinishTurnData{
		TurnNo: d.TurnNumber,
		Winner: winner,
		Score:  copyInts(score),
	}})
	o.record(d, winner, "finish_turn", map[string]interface{}{
		"turn":   d.TurnNumber,
		"reason": reason,
		"score":  copyInts(score),
	})
	dl.log.WithFields(logrus.Fields{
		"room":   d.Room,
		"turn":   d.TurnNumber,
		"winner": winner,
		"reason": reason,
	}).Info("turn finished")
}

func (dl *Dealer) randomColor() models.Color {
	return models.PlayableColors[dl.rng.Intn(len(models.PlayableColors))]
}
