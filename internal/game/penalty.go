// internal/game/penalty.go
package game

import (
	"github.com/sirupsen/logrus"
)

// penalize answers a rule violation: the offender draws a capped penalty and, when the offender
// was the player the desk was waiting on, forfeits the rest of the turn.
func (dl *Dealer) penalize(d *Desk, p string, cause error, o *Outcome) {
	wasActor := d.ExpectedActor() == p
	count := dl.capped(d, p, dl.rules.PenaltyDraw)
	dl.log.WithFields(logrus.Fields{
		"room":   d.Room,
		"player": p,
		"code":   CodeOf(cause),
		"draw":   count,
	}).Debug("penalizing rule violation")
	dl.applyPenalty(d, p, count, CodeOf(cause), cause.Error(), wasActor, o)
}

// timeout answers a missed deadline the same way as a violation, using the timeout penalty.
func (dl *Dealer) timeout(d *Desk, p string, o *Outcome) {
	wasActor := d.ExpectedActor() == p
	o.cancel(d, p)
	count := dl.capped(d, p, dl.rules.TimeoutPenalty)
	dl.applyPenalty(d, p, count, "timeout", "action deadline missed", wasActor, o)
}

func (dl *Dealer) applyPenalty(d *Desk, p string, count int, code, msg string, wasActor bool, o *Outcome) {
	d.UnoDeclared[p] = false
	_, err := dl.drawCards(d, p, count, true, o)
	o.emit(Event{Type: EventPenalty, Data: PenaltyData{
		Player:    p,
		Code:      code,
		DrawCount: count,
		Error:     msg,
	}})
	o.record(d, p, "penalty", map[string]interface{}{"code": code, "count": count})
	if err != nil {
		dl.finishTurn(d, "", "resource_exhaustion", o)
		return
	}
	if wasActor {
		dl.forfeit(d, p, o)
	}
}

// forfeit settles whatever the desk was waiting on from p and moves play along.
func (dl *Dealer) forfeit(d *Desk, p string, o *Outcome) {
	if d.ColorPending == p {
		dl.colorOfWild(d, p, dl.randomColor(), o)
		return
	}
	if d.MustDraw {
		count := d.PendingDrawCount
		bind := count == 0
		if bind {
			count = dl.rules.BindDraw
		}
		_, err := dl.drawCards(d, p, count, false, o)
		if bind {
			d.ActivationCounts[p]--
			if d.ActivationCounts[p] <= 0 {
				delete(d.ActivationCounts, p)
			}
		} else {
			d.clearPendingDraw()
		}
		d.MustDraw = false
		if err != nil {
			dl.finishTurn(d, "", "resource_exhaustion", o)
			return
		}
	}
	d.CanPlayDrawCard = false
	d.HeldCard = nil
	d.InterruptLocked = false
	dl.advance(d, o)
}
