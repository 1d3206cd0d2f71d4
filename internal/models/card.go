// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"
)

// Color is the color of a card. BLACK and WHITE only appear on wild-family cards.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
)

// PlayableColors are the four colors a player may choose when covering a wild.
var PlayableColors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// IsPlayable reports whether c is one of the four choosable colors.
func (c Color) IsPlayable() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// Special is the rank of a non-number card.
type Special string

const (
	SpecialNone        Special = ""
	SpecialSkip        Special = "skip"
	SpecialReverse     Special = "reverse"
	SpecialDrawTwo     Special = "draw_2"
	SpecialWild        Special = "wild"
	SpecialWildDraw4   Special = "wild_draw_4"
	SpecialWildShuffle Special = "wild_shuffle"
	SpecialWhiteWild   Special = "white_wild"
)

// IsWild reports whether the special belongs to the wild family.
func (s Special) IsWild() bool {
	switch s {
	case SpecialWild, SpecialWildDraw4, SpecialWildShuffle, SpecialWhiteWild:
		return true
	}
	return false
}

// Card is an immutable card value. Exactly one of Number (when Special is empty) or Special is meaningful.
type Card struct {
	Color   Color
	Number  int
	Special Special
}

// NumberCard builds a number card.
func NumberCard(color Color, n int) Card {
	return Card{Color: color, Number: n}
}

// SpecialCard builds a special card.
func SpecialCard(color Color, s Special) Card {
	return Card{Color: color, Special: s}
}

// IsNumber reports whether the card is a number card.
func (c Card) IsNumber() bool { return c.Special == SpecialNone }

// IsWild reports whether the card belongs to the wild family.
func (c Card) IsWild() bool { return c.Special.IsWild() }

// Valid checks that the card is a value that can exist in a deck.
func (c Card) Valid() bool {
	switch c.Special {
	case SpecialNone:
		return c.Color.IsPlayable() && c.Number >= 0 && c.Number <= 9
	case SpecialSkip, SpecialReverse, SpecialDrawTwo:
		return c.Color.IsPlayable()
	case SpecialWild, SpecialWildDraw4, SpecialWildShuffle:
		return c.Color == ColorBlack
	case SpecialWhiteWild:
		return c.Color == ColorWhite
	}
	return false
}

// Points is the value of the card when it is left in a losing hand.
func (c Card) Points() int {
	switch c.Special {
	case SpecialNone:
		return c.Number
	case SpecialSkip, SpecialReverse, SpecialDrawTwo:
		return 20
	case SpecialWild, SpecialWildDraw4:
		return 50
	case SpecialWildShuffle, SpecialWhiteWild:
		return 40
	}
	return 0
}

// SameFace compares the printed face of two cards, ignoring any override color.
func (c Card) SameFace(o Card) bool {
	return c.Special == o.Special && c.Number == o.Number && c.Color == o.Color
}

func (c Card) String() string {
	if c.IsNumber() {
		return fmt.Sprintf("%s %d", c.Color, c.Number)
	}
	return fmt.Sprintf("%s %s", c.Color, c.Special)
}

type cardJSON struct {
	Color   Color   `json:"color"`
	Number  *int    `json:"number,omitempty"`
	Special Special `json:"special,omitempty"`
}

// MarshalJSON writes {"color","number"} for number cards and {"color","special"} otherwise.
func (c Card) MarshalJSON() ([]byte, error) {
	out := cardJSON{Color: c.Color, Special: c.Special}
	if c.IsNumber() {
		n := c.Number
		out.Number = &n
	}
	return json.Marshal(out)
}

// UnmarshalJSON rejects payloads carrying both or neither of number and special.
func (c *Card) UnmarshalJSON(data []byte) error {
	var in cardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if (in.Number == nil) == (in.Special == SpecialNone) {
		return fmt.Errorf("card must carry exactly one of number or special")
	}
	c.Color = in.Color
	c.Special = in.Special
	c.Number = 0
	if in.Number != nil {
		c.Number = *in.Number
	}
	return nil
}

// CountPoints sums the point value of a hand.
func CountPoints(hand []Card) int {
	total := 0
	for _, c := range hand {
		total += c.Points()
	}
	return total
}
