// internal/game/actions.go
package game

import (
	"github.com/jason-s-yu/unodealer/internal/models"
)

// playCard moves a validated card from the owner's hand to the discard pile and applies its effect.
func (dl *Dealer) playCard(d *Desk, cmd Command, o *Outcome) {
	p := cmd.Player
	card := *cmd.Card
	prev := *d.CurrentCard

	if card.Special == models.SpecialWildDraw4 {
		d.ChallengeCard = &prev
		d.ChallengeHand = append([]models.Card(nil), d.Hands[p]...)
	} else {
		d.ChallengeCard = nil
		d.ChallengeHand = nil
	}

	d.removeFromHand(p, card)
	d.DiscardPile = append(d.DiscardPile, card)
	d.CardsPlayedThisTurn++
	d.ConsecutiveNoPlayCount = 0
	d.CanPlayDrawCard = false
	d.HeldCard = nil
	d.UnoDeclared[p] = cmd.YellUno && len(d.Hands[p]) == 1
	handEmpty := len(d.Hands[p]) == 0

	delta := resolveEffect(effectContext{
		card:      card,
		color:     cmd.Color,
		prevColor: prev.Color,
		whiteWild: d.WhiteWild,
	})
	if handEmpty && card.Special == models.SpecialWhiteWild {
		delta = EffectDelta{Color: delta.Color}
	}

	cur := card
	if delta.Color != "" {
		cur.Color = delta.Color
	}
	d.CurrentCard = &cur

	o.emit(Event{Type: EventPlayCard, Data: PlayCardData{
		Player:      p,
		CardPlay:    card,
		YellUno:     d.UnoDeclared[p],
		ColorOfWild: delta.Color,
	}})
	if delta.Color != "" {
		o.emit(Event{Type: EventUpdateColor, Data: UpdateColorData{Player: p, Color: delta.Color}})
	}
	o.record(d, p, "play_card", map[string]interface{}{
		"card":    card.String(),
		"color":   string(cur.Color),
		"yellUno": d.UnoDeclared[p],
	})

	if delta.Reverse {
		d.TurnDirection = !d.TurnDirection
	}
	if delta.SkipNext {
		d.SkipNext = true
	}
	if delta.AddDraw > 0 {
		d.PendingDrawCount += delta.AddDraw
		d.DrawSource = delta.DrawSource
	}
	if delta.Bind > 0 {
		d.ActivationCounts[d.PlayerAfter(p)] += delta.Bind
	}
	if delta.Shuffle {
		dl.shuffleHands(d, p, o)
	}
	if delta.NeedsColor {
		o.cancel(d, p)
		d.ColorPending = p
		d.ColorSource = card.Special
		d.InterruptLocked = true
		o.arm(d, p)
		return
	}
	if handEmpty {
		dl.finishTurn(d, p, "hand_empty", o)
		return
	}
	dl.advance(d, o)
}

// drawCard resolves a forced draw, or draws a single card voluntarily.
func (dl *Dealer) drawCard(d *Desk, cmd Command, o *Outcome) {
	p := cmd.Player
	count, forced, bind := 1, false, false
	switch {
	case d.PendingDrawCount > 0:
		count, forced = d.PendingDrawCount, true
	case d.ActivationCounts[p] > 0:
		count, forced, bind = dl.rules.BindDraw, true, true
	}

	drawn, err := dl.drawCards(d, p, count, false, o)
	if forced {
		if bind {
			d.ActivationCounts[p]--
			if d.ActivationCounts[p] <= 0 {
				delete(d.ActivationCounts, p)
			}
		} else {
			d.clearPendingDraw()
		}
		d.MustDraw = false
	}

	canPlay := err == nil && !forced && len(drawn) == 1 && Playable(d.CurrentCard, drawn[0])
	o.emit(Event{Type: EventDrawCard, Data: DrawCardData{
		Player:          p,
		CanPlayDrawCard: canPlay,
		DrawCount:       len(drawn),
	}})
	o.record(d, p, "draw_card", map[string]interface{}{
		"count":   len(drawn),
		"forced":  forced,
		"canPlay": canPlay,
	})
	if err != nil {
		dl.finishTurn(d, "", "resource_exhaustion", o)
		return
	}

	if !forced {
		if canPlay {
			d.ConsecutiveNoPlayCount = 0
		} else {
			d.ConsecutiveNoPlayCount++
		}
	}
	if canPlay {
		held := drawn[0]
		d.CanPlayDrawCard = true
		d.HeldCard = &held
		o.cancel(d, p)
		o.arm(d, p)
		return
	}
	if limit := dl.rules.StallRounds * len(d.Players); d.ConsecutiveNoPlayCount > limit {
		dl.finishTurn(d, "", "stalemate", o)
		return
	}
	dl.advance(d, o)
}

// playDrawCard settles the decision on the card just drawn.
func (dl *Dealer) playDrawCard(d *Desk, cmd Command, o *Outcome) {
	p := cmd.Player
	d.CanPlayDrawCard = false
	d.HeldCard = nil

	data := PlayDrawCardData{Player: p, IsPlayCard: cmd.IsPlay, YellUno: cmd.YellUno}
	if cmd.IsPlay {
		data.CardPlay = cmd.Card
	}
	o.emit(Event{Type: EventPlayDrawCard, Data: data})

	if !cmd.IsPlay {
		o.record(d, p, "keep_draw_card", nil)
		dl.advance(d, o)
		return
	}
	dl.playCard(d, cmd, o)
}

// challenge resolves the next player's answer to a wild draw 4.
func (dl *Dealer) challenge(d *Desk, cmd Command, o *Outcome) {
	challenger := cmd.Player
	target := d.BeforePlayer
	pending := d.PendingDrawCount
	prev := *d.ChallengeCard
	hand := d.ChallengeHand
	d.clearPendingDraw()
	d.MustDraw = false

	data := ChallengeData{Challenger: challenger, Target: target, IsChallenge: cmd.IsChallenge}
	if !cmd.IsChallenge {
		o.emit(Event{Type: EventChallenge, Data: data})
		o.record(d, challenger, "challenge", map[string]interface{}{"isChallenge": false})
		if _, err := dl.drawCards(d, challenger, pending, false, o); err != nil {
			dl.finishTurn(d, "", "resource_exhaustion", o)
			return
		}
		dl.advance(d, o)
		return
	}

	success := challengeSucceeds(prev, hand)
	data.IsChallengeSuccess = &success
	o.emit(Event{Type: EventPublicCard, To: challenger, Data: PublicCardData{
		Player:       target,
		CardOfPlayer: append([]models.Card(nil), hand...),
	}})
	o.emit(Event{Type: EventChallenge, Data: data})
	o.record(d, challenger, "challenge", map[string]interface{}{
		"isChallenge": true,
		"success":     success,
		"target":      target,
	})

	if success {
		if _, err := dl.drawCards(d, target, pending, true, o); err != nil {
			dl.finishTurn(d, "", "resource_exhaustion", o)
			return
		}
		d.refreshMustDraw()
		o.cancel(d, challenger)
		dl.announceNext(d, o)
		o.arm(d, challenger)
		return
	}
	if _, err := dl.drawCards(d, challenger, pending+dl.rules.ChallengePenalty, true, o); err != nil {
		dl.finishTurn(d, "", "resource_exhaustion", o)
		return
	}
	dl.advance(d, o)
}

// challengeSucceeds reports whether the hand a wild draw 4 came from held another playable card.
// prev is the card the wild draw 4 covered, with its effective color.
func challengeSucceeds(prev models.Card, hand []models.Card) bool {
	skipped := false
	for _, c := range hand {
		if c.Special == models.SpecialWildDraw4 && !skipped {
			skipped = true
			continue
		}
		if c.IsWild() || c.Color == prev.Color {
			return true
		}
		if prev.IsWild() {
			continue
		}
		if c.IsNumber() && prev.IsNumber() && c.Number == prev.Number {
			return true
		}
		if !c.IsNumber() && c.Special == prev.Special {
			return true
		}
	}
	return false
}

// pointNotSayUno penalizes the last actor for holding one card without having declared it.
func (dl *Dealer) pointNotSayUno(d *Desk, cmd Command, o *Outcome) {
	target := cmd.Target
	declared := d.UnoDeclared[target]
	o.emit(Event{Type: EventPointedNotSayUno, Data: PointedNotSayUnoData{
		Pointer:    cmd.Player,
		Target:     target,
		HaveSayUno: declared,
	}})
	o.record(d, cmd.Player, "point_not_say_uno", map[string]interface{}{
		"target":   target,
		"declared": declared,
	})
	if declared {
		return
	}
	_, err := dl.drawCards(d, target, dl.rules.UnoPenalty, true, o)
	d.AlreadyPenalizedForUno[target] = true
	if err != nil {
		dl.finishTurn(d, "", "resource_exhaustion", o)
	}
}

// specialLogic records a named out-of-band action. It has no effect on the desk besides usage.
func (dl *Dealer) specialLogic(d *Desk, cmd Command, o *Outcome) {
	d.SpecialLogicUsage[cmd.Player]++
	o.record(d, cmd.Player, "special_logic", map[string]interface{}{
		"title": cmd.Title,
		"usage": d.SpecialLogicUsage[cmd.Player],
	})
}

// colorOfWild settles a pending color choice and resumes play.
func (dl *Dealer) colorOfWild(d *Desk, p string, color models.Color, o *Outcome) {
	source := d.ColorSource
	cur := *d.CurrentCard
	cur.Color = color
	d.CurrentCard = &cur
	d.ColorPending = ""
	d.ColorSource = models.SpecialNone
	d.InterruptLocked = false
	o.cancel(d, p)

	o.emit(Event{Type: EventUpdateColor, Data: UpdateColorData{Player: p, Color: color}})
	o.record(d, p, "color_of_wild", map[string]interface{}{"color": string(color)})

	if source == models.SpecialWildShuffle {
		if len(d.Hands[p]) == 0 {
			dl.finishTurn(d, p, "hand_empty", o)
			return
		}
		dl.advance(d, o)
		return
	}
	// opening wild: the first player keeps the turn
	d.refreshMustDraw()
	dl.announceNext(d, o)
	o.arm(d, d.NextPlayer)
}

// clearPendingDraw drops the pending forced draw together with its challenge context.
func (d *Desk) clearPendingDraw() {
	d.PendingDrawCount = 0
	d.DrawSource = models.SpecialNone
	d.ChallengeCard = nil
	d.ChallengeHand = nil
}
