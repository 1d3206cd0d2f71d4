// internal/models/house_rules.go
package models

import "fmt"

// WhiteWildRule selects the house-rule variant of the WHITE_WILD card. The empty rule
// disables the variant and keeps white wilds out of the deck.
type WhiteWildRule string

const (
	WhiteWildOff       WhiteWildRule = ""
	WhiteWildBind2     WhiteWildRule = "bind_2"
	WhiteWildSkipBind2 WhiteWildRule = "skip_bind_2"
)

// Enabled reports whether white wilds are dealt.
func (r WhiteWildRule) Enabled() bool {
	return r != WhiteWildOff
}

// ParseWhiteWildRule accepts the wire names of the variant.
func ParseWhiteWildRule(s string) (WhiteWildRule, error) {
	switch WhiteWildRule(s) {
	case WhiteWildOff, WhiteWildBind2, WhiteWildSkipBind2:
		return WhiteWildRule(s), nil
	}
	return WhiteWildOff, fmt.Errorf("unknown white wild rule %q", s)
}
