// internal/game/effects.go
package game

import (
	"github.com/jason-s-yu/unodealer/internal/models"
)

// EffectDelta is the structured result of a card effect. The dealer applies it to the desk.
type EffectDelta struct {
	SkipNext   bool
	Reverse    bool
	AddDraw    int
	DrawSource models.Special
	// Color replaces the color of the discard top. Empty keeps the printed color.
	Color models.Color
	// NeedsColor defers the color choice to a color-of-wild command from the player.
	NeedsColor bool
	// Shuffle redistributes every non-empty hand.
	Shuffle bool
	// Bind adds white wild activations to the player after the one who played.
	Bind int
}

type effectContext struct {
	card      models.Card
	color     models.Color // color named in the command
	prevColor models.Color // color of the card being covered
	whiteWild models.WhiteWildRule
}

type effectHandler func(ec effectContext) EffectDelta

var effectHandlers = map[models.Special]effectHandler{
	models.SpecialNone:        func(effectContext) EffectDelta { return EffectDelta{} },
	models.SpecialSkip:        func(effectContext) EffectDelta { return EffectDelta{SkipNext: true} },
	models.SpecialReverse:     reverseEffect,
	models.SpecialDrawTwo:     func(effectContext) EffectDelta { return EffectDelta{AddDraw: 2, DrawSource: models.SpecialDrawTwo} },
	models.SpecialWild:        func(ec effectContext) EffectDelta { return EffectDelta{Color: ec.color} },
	models.SpecialWildDraw4:   wildDraw4Effect,
	models.SpecialWildShuffle: func(effectContext) EffectDelta { return EffectDelta{Shuffle: true, NeedsColor: true} },
	models.SpecialWhiteWild:   whiteWildEffect,
}

func resolveEffect(ec effectContext) EffectDelta {
	h, ok := effectHandlers[ec.card.Special]
	if !ok {
		return EffectDelta{}
	}
	return h(ec)
}

func reverseEffect(effectContext) EffectDelta {
	return EffectDelta{Reverse: true}
}

func wildDraw4Effect(ec effectContext) EffectDelta {
	return EffectDelta{Color: ec.color, AddDraw: 4, DrawSource: models.SpecialWildDraw4}
}

// whiteWildEffect keeps the covered color unless the player named one.
func whiteWildEffect(ec effectContext) EffectDelta {
	delta := EffectDelta{Color: ec.prevColor}
	if ec.color.IsPlayable() {
		delta.Color = ec.color
	}
	switch ec.whiteWild {
	case models.WhiteWildBind2:
		delta.Bind = 1
	case models.WhiteWildSkipBind2:
		delta.Bind = 1
		delta.SkipNext = true
	}
	return delta
}

// firstCardEffect is the effect of the card turned up at deal time. Wild draw 4, wild shuffle and
// white wild never start a turn.
func firstCardEffect(c models.Card) EffectDelta {
	switch c.Special {
	case models.SpecialSkip:
		return EffectDelta{SkipNext: true}
	case models.SpecialReverse:
		return EffectDelta{Reverse: true}
	case models.SpecialDrawTwo:
		return EffectDelta{AddDraw: 2, DrawSource: models.SpecialDrawTwo}
	case models.SpecialWild:
		return EffectDelta{NeedsColor: true}
	}
	return EffectDelta{}
}

// canOpen reports whether c may be the first discard of a turn.
func canOpen(c models.Card) bool {
	switch c.Special {
	case models.SpecialWildDraw4, models.SpecialWildShuffle, models.SpecialWhiteWild:
		return false
	}
	return true
}
