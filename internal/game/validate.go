// internal/game/validate.go
package game

import (
	"github.com/jason-s-yu/unodealer/internal/models"
)

// CommandKind names an inbound engine command. The values match the protocol event names.
type CommandKind string

const (
	CmdColorOfWild    CommandKind = "color-of-wild"
	CmdPlayCard       CommandKind = "play-card"
	CmdDrawCard       CommandKind = "draw-card"
	CmdPlayDrawCard   CommandKind = "play-draw-card"
	CmdChallenge      CommandKind = "challenge"
	CmdPointNotSayUno CommandKind = "pointed-not-say-uno"
	CmdSpecialLogic   CommandKind = "special-logic"
	CmdTimeout        CommandKind = "timeout" // synthetic, injected by the timer registry
)

// Command is one state-mutating request against a desk.
type Command struct {
	Kind   CommandKind
	Player string

	Card        *models.Card // play-card; filled from the held card for play-draw-card
	YellUno     bool
	Color       models.Color
	IsPlay      bool   // play-draw-card
	IsChallenge bool   // challenge
	Target      string // pointed-not-say-uno
	Title       string // special-logic

	// Generation identifies the deadline a timeout belongs to.
	Generation uint64

	// Malformed carries the decode failure of a payload that could not be read. Such a command
	// still runs its pipeline so the sender is penalized like any other validation failure.
	Malformed error
}

// check is one precondition of the validation pipeline. Checks never mutate the desk.
type check func(d *Desk, cmd Command, rules Rules) error

// pipelines lists, per command, the ordered preconditions that must hold before any mutation.
var pipelines = map[CommandKind][]check{
	CmdPlayCard: {
		checkTurnActive, checkPlayer, checkWellFormed, checkUnlocked, checkTurnOwner, checkNotHolding,
		checkNotMustDraw, checkCardOwned, checkCardLegal, checkWildColor, checkUnoDeclaration,
	},
	CmdDrawCard: {
		checkTurnActive, checkPlayer, checkWellFormed, checkUnlocked, checkTurnOwner, checkNotHolding,
	},
	CmdPlayDrawCard: {
		checkTurnActive, checkPlayer, checkWellFormed, checkUnlocked, checkTurnOwner, checkHolding,
		whenPlaying(checkCardOwned), whenPlaying(checkCardLegal), whenPlaying(checkWildColor),
		whenPlaying(checkUnoDeclaration),
	},
	CmdChallenge: {
		checkTurnActive, checkPlayer, checkWellFormed, checkUnlocked, checkTurnOwner, checkChallengeable,
	},
	CmdPointNotSayUno: {
		checkTurnActive, checkPlayer, checkWellFormed, checkUnlocked, checkPointTarget,
	},
	CmdSpecialLogic: {
		checkPlayer, checkWellFormed, checkSpecialLogicQuota,
	},
	CmdColorOfWild: {
		checkTurnActive, checkPlayer, checkWellFormed, checkColorOwed,
	},
	CmdTimeout: {
		checkTurnActive, checkPlayer, checkAwaiting,
	},
}

// validate runs the pipeline of cmd and returns the first failing precondition.
func validate(d *Desk, cmd Command, rules Rules) error {
	checks, ok := pipelines[cmd.Kind]
	if !ok {
		return violation(ErrMalformed, "unknown command %q", cmd.Kind)
	}
	for _, c := range checks {
		if err := c(d, cmd, rules); err != nil {
			return err
		}
	}
	return nil
}

func whenPlaying(c check) check {
	return func(d *Desk, cmd Command, rules Rules) error {
		if !cmd.IsPlay {
			return nil
		}
		return c(d, cmd, rules)
	}
}

func checkTurnActive(d *Desk, _ Command, _ Rules) error {
	if !d.TurnActive {
		return ErrTurnNotActive
	}
	return nil
}

func checkPlayer(d *Desk, cmd Command, _ Rules) error {
	if !d.IsPlayer(cmd.Player) {
		return violation(ErrNotPlayer, "%s", cmd.Player)
	}
	return nil
}

func checkWellFormed(_ *Desk, cmd Command, _ Rules) error {
	if cmd.Malformed != nil {
		return violation(ErrMalformed, "%v", cmd.Malformed)
	}
	return nil
}

func checkUnlocked(d *Desk, cmd Command, _ Rules) error {
	if d.InterruptLocked {
		return violation(ErrInterruptLocked, "%s must choose a color first", d.ColorPending)
	}
	return nil
}

func checkTurnOwner(d *Desk, cmd Command, _ Rules) error {
	if cmd.Player != d.NextPlayer {
		return violation(ErrTurnViolation, "turn belongs to %s", d.NextPlayer)
	}
	return nil
}

func checkNotHolding(d *Desk, _ Command, _ Rules) error {
	if d.CanPlayDrawCard {
		return ErrHoldingDraw
	}
	return nil
}

func checkHolding(d *Desk, _ Command, _ Rules) error {
	if !d.CanPlayDrawCard || d.HeldCard == nil {
		return ErrNotHoldingDraw
	}
	return nil
}

func checkNotMustDraw(d *Desk, _ Command, _ Rules) error {
	if d.MustDraw {
		return ErrMustDrawFirst
	}
	return nil
}

func checkCardOwned(d *Desk, cmd Command, _ Rules) error {
	if cmd.Card == nil {
		return violation(ErrMalformed, "card_play is missing")
	}
	if !cmd.Card.Valid() {
		return violation(ErrInvalidCard, "%s is not a card", cmd.Card)
	}
	if !d.hasCard(cmd.Player, *cmd.Card) {
		return violation(ErrInvalidCard, "%s is not in hand", cmd.Card)
	}
	return nil
}

func checkCardLegal(d *Desk, cmd Command, _ Rules) error {
	if d.PendingDrawCount > 0 || !Playable(d.CurrentCard, *cmd.Card) {
		return violation(ErrInvalidCard, "%s does not match %s", cmd.Card, d.CurrentCard)
	}
	return nil
}

func checkWildColor(_ *Desk, cmd Command, _ Rules) error {
	if !needsColor(*cmd.Card) {
		return nil
	}
	if cmd.Color == "" {
		return violation(ErrColorRequired, "%s", cmd.Card.Special)
	}
	if !cmd.Color.IsPlayable() {
		return violation(ErrColorInvalid, "%q", cmd.Color)
	}
	return nil
}

func checkUnoDeclaration(d *Desk, cmd Command, _ Rules) error {
	if cmd.YellUno && len(d.Hands[cmd.Player])-1 != 1 {
		return violation(ErrUnoMismatch, "%d cards would remain", len(d.Hands[cmd.Player])-1)
	}
	return nil
}

func checkChallengeable(d *Desk, _ Command, _ Rules) error {
	if d.DrawSource != models.SpecialWildDraw4 || d.PendingDrawCount == 0 || d.ChallengeCard == nil {
		return ErrChallengeUnavailable
	}
	return nil
}

func checkPointTarget(d *Desk, cmd Command, _ Rules) error {
	t := cmd.Target
	switch {
	case !d.IsPlayer(t) || t == cmd.Player:
		return violation(ErrPointInvalid, "%q cannot be pointed at", t)
	case len(d.Hands[t]) != 1:
		return violation(ErrPointInvalid, "%s holds %d cards", t, len(d.Hands[t]))
	case t != d.BeforePlayer:
		return violation(ErrPointInvalid, "%s did not act last", t)
	case d.AlreadyPenalizedForUno[t]:
		return violation(ErrPointInvalid, "%s was already penalized", t)
	}
	return nil
}

func checkSpecialLogicQuota(d *Desk, cmd Command, rules Rules) error {
	if d.SpecialLogicUsage[cmd.Player] >= rules.SpecialLogicLimit {
		return ErrSpecialLogicLimit
	}
	return nil
}

func checkColorOwed(d *Desk, cmd Command, _ Rules) error {
	if d.ColorPending != cmd.Player {
		return ErrColorNotPending
	}
	if !cmd.Color.IsPlayable() {
		return violation(ErrColorInvalid, "%q", cmd.Color)
	}
	return nil
}

func checkAwaiting(d *Desk, cmd Command, _ Rules) error {
	if !d.AwaitingTimeout[cmd.Player] {
		return ErrTurnNotActive
	}
	return nil
}

// Playable reports whether c may be played on cur: wild-family cards always match, others
// match by color or by number / special.
func Playable(cur *models.Card, c models.Card) bool {
	if cur == nil || c.IsWild() {
		return true
	}
	if c.Color == cur.Color {
		return true
	}
	if c.IsNumber() {
		return cur.IsNumber() && c.Number == cur.Number
	}
	return c.Special == cur.Special
}

// needsColor reports whether playing c requires a color in the same command. Wild shuffle picks its
// color after the hands are redistributed; white wild keeps the color it covers.
func needsColor(c models.Card) bool {
	return c.Special == models.SpecialWild || c.Special == models.SpecialWildDraw4
}
