// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// Rules holds the tunable constants of the dealer. The defaults match DefaultRules; the server
// reads them from RULE_* environment variables and rooms may override them on creation.
type Rules struct {
	HandSize          int           `env:"HAND_SIZE" envDefault:"7" json:"handSize"`                    // cards dealt to each player
	MaxHandSize       int           `env:"MAX_HAND_SIZE" envDefault:"25" json:"maxHandSize"`            // caps penalty draws
	PenaltyDraw       int           `env:"PENALTY_DRAW" envDefault:"2" json:"penaltyDraw"`              // draw on a rule violation
	UnoPenalty        int           `env:"UNO_PENALTY" envDefault:"2" json:"unoPenalty"`                // draw when caught without declaring uno
	ChallengePenalty  int           `env:"CHALLENGE_PENALTY" envDefault:"2" json:"challengePenalty"`    // extra draw on a failed challenge
	BindDraw          int           `env:"BIND_DRAW" envDefault:"2" json:"bindDraw"`                    // draw per white wild activation
	TimeoutPenalty    int           `env:"TIMEOUT_PENALTY" envDefault:"2" json:"timeoutPenalty"`        // draw on an action deadline miss
	ShuffleIterations int           `env:"SHUFFLE_ITERATIONS" envDefault:"1000" json:"shuffleIterations"` // transpositions per shuffle
	TurnTimeout       time.Duration `env:"TURN_TIMEOUT" envDefault:"10s" json:"-"`                      // per-action deadline, 0 disables
	SpecialLogicLimit int           `env:"SPECIAL_LOGIC_LIMIT" envDefault:"10" json:"specialLogicLimit"` // per player per room
	StallRounds       int           `env:"STALL_ROUNDS" envDefault:"10" json:"stallRounds"`             // no-play rounds before a forced turn end
	Seed              int64         `env:"SEED" envDefault:"0" json:"-"`                                // 0 seeds from the clock
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		HandSize:          7,
		MaxHandSize:       25,
		PenaltyDraw:       2,
		UnoPenalty:        2,
		ChallengePenalty:  2,
		BindDraw:          2,
		TimeoutPenalty:    2,
		ShuffleIterations: 1000,
		TurnTimeout:       10 * time.Second,
		SpecialLogicLimit: 10,
		StallRounds:       10,
	}
}

// Update will update the rules with the new values provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	assignInt := func(field *int, key string, minVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		// JSON numbers are float64, handle conversion
		switch v := val.(type) {
		case float64:
			*field = int(v)
		case int:
			*field = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if *field < minVal {
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		return nil
	}

	if err := assignInt(&rules.HandSize, "handSize", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.MaxHandSize, "maxHandSize", 1); err != nil {
		return err
	}
	if err := assignInt(&rules.PenaltyDraw, "penaltyDraw", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.UnoPenalty, "unoPenalty", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.ChallengePenalty, "challengePenalty", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.BindDraw, "bindDraw", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.TimeoutPenalty, "timeoutPenalty", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.ShuffleIterations, "shuffleIterations", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.SpecialLogicLimit, "specialLogicLimit", 0); err != nil {
		return err
	}
	if err := assignInt(&rules.StallRounds, "stallRounds", 1); err != nil {
		return err
	}

	if val, ok := newRules["turnTimeoutSec"]; ok && val != nil {
		sec, ok := val.(float64)
		if !ok || sec < 0 {
			return fmt.Errorf("turnTimeoutSec must be a non-negative number")
		}
		rules.TurnTimeout = time.Duration(sec * float64(time.Second))
	}
	return nil
}

// ParseRules applies a map of overrides to a copy of current.
func ParseRules(overrides map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(overrides)
	return rules, err
}
