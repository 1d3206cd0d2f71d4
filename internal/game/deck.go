// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/jason-s-yu/unodealer/internal/models"
)

const (
	// deckSlots is the size of the index space the generator walks.
	deckSlots = 112
	// slotsPerBlock holds ranks 0-9, skip, reverse, draw 2 and one black card.
	slotsPerBlock = 14
	// whiteWildCount is the number of white wilds added by the house rule.
	whiteWildCount = 3

	// BaseDeckSize and HouseRuleDeckSize are the sizes NewDeck produces.
	BaseDeckSize      = 109
	HouseRuleDeckSize = BaseDeckSize + whiteWildCount
)

var blockColors = []models.Color{models.ColorRed, models.ColorYellow, models.ColorGreen, models.ColorBlue}

// cardAt maps a slot index in [0,112) to its card. The second return is false for the duplicate
// zero slots, which the generator skips so each color carries a single zero.
func cardAt(index int) (models.Card, bool) {
	block := index / slotsPerBlock
	rank := index % slotsPerBlock
	color := blockColors[block%len(blockColors)]

	switch rank {
	case 13:
		// low half of the blocks carries wild draw 4s, the high half plain wilds
		if block < deckSlots/slotsPerBlock/2 {
			return models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4), true
		}
		return models.SpecialCard(models.ColorBlack, models.SpecialWild), true
	case 10:
		return models.SpecialCard(color, models.SpecialSkip), true
	case 11:
		return models.SpecialCard(color, models.SpecialReverse), true
	case 12:
		return models.SpecialCard(color, models.SpecialDrawTwo), true
	}
	if rank == 0 && block >= len(blockColors) {
		return models.Card{}, false
	}
	return models.NumberCard(color, rank), true
}

// NewDeck generates an unshuffled deck: 109 cards, or 112 with the white wild house rule.
func NewDeck(whiteWild models.WhiteWildRule) []models.Card {
	deck := make([]models.Card, 0, HouseRuleDeckSize)
	for i := 0; i < deckSlots; i++ {
		if c, ok := cardAt(i); ok {
			deck = append(deck, c)
		}
	}
	deck = append(deck, models.SpecialCard(models.ColorBlack, models.SpecialWildShuffle))
	if whiteWild.Enabled() {
		for i := 0; i < whiteWildCount; i++ {
			deck = append(deck, models.SpecialCard(models.ColorWhite, models.SpecialWhiteWild))
		}
	}
	return deck
}

// Shuffle mixes cards in place by swapping two independently drawn positions, iterations times.
func Shuffle(rng *rand.Rand, cards []models.Card, iterations int) {
	if len(cards) < 2 {
		return
	}
	for i := 0; i < iterations; i++ {
		a := rng.Intn(len(cards))
		b := rng.Intn(len(cards))
		cards[a], cards[b] = cards[b], cards[a]
	}
}
