// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrorKind classifies rule failures. The kind decides how the dealer reacts.
type ErrorKind int

const (
	// KindValidation covers malformed payloads, unknown or unowned cards, illegal plays and
	// missing color selections. Always penalized.
	KindValidation ErrorKind = iota + 1
	// KindTurnViolation covers acting out of turn or while locked / required to draw. Penalized,
	// and the turn advances when the offender held it.
	KindTurnViolation
	// KindResourceExhaustion means the piles could not supply a required draw. Ends the turn.
	KindResourceExhaustion
	// KindRoomUnavailable means too few players are connected. The command is rejected.
	KindRoomUnavailable
	// KindInternal is anything unexpected. The command is aborted without mutation.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTurnViolation:
		return "turn_violation"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindRoomUnavailable:
		return "room_unavailable"
	default:
		return "internal"
	}
}

// RuleError is a classified dealer error. The exported sentinels below are compared with errors.Is.
type RuleError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

func newRuleError(kind ErrorKind, code, msg string) *RuleError {
	return &RuleError{Kind: kind, Code: code, Message: msg}
}

var (
	ErrTurnViolation        = newRuleError(KindTurnViolation, "turn_violation", "it is not your turn")
	ErrInterruptLocked      = newRuleError(KindTurnViolation, "interrupt_locked", "another player is resolving an effect")
	ErrMustDrawFirst        = newRuleError(KindTurnViolation, "must_draw_first", "you must draw before playing")
	ErrNotHoldingDraw       = newRuleError(KindTurnViolation, "not_holding_draw", "there is no drawn card to play")
	ErrHoldingDraw          = newRuleError(KindTurnViolation, "holding_draw", "you must decide on the drawn card first")
	ErrInvalidCard          = newRuleError(KindValidation, "invalid_card", "card cannot be played")
	ErrColorRequired        = newRuleError(KindValidation, "color_required", "a color must be chosen for this card")
	ErrColorInvalid         = newRuleError(KindValidation, "color_invalid", "chosen color is not valid")
	ErrUnoMismatch          = newRuleError(KindValidation, "uno_mismatch", "uno can only be declared with one card left")
	ErrChallengeUnavailable = newRuleError(KindValidation, "challenge_unavailable", "there is no wild draw 4 to challenge")
	ErrColorNotPending      = newRuleError(KindValidation, "color_not_pending", "no color selection is pending for you")
	ErrPointInvalid         = newRuleError(KindValidation, "point_invalid", "target cannot be pointed at")
	ErrMalformed            = newRuleError(KindValidation, "malformed", "malformed payload")

	// The following are rejected without a penalty.
	ErrSpecialLogicLimit = newRuleError(KindValidation, "special_logic_limit", "special logic usage limit reached")
	ErrNotPlayer         = newRuleError(KindValidation, "not_player", "player does not sit at this room")
	ErrTurnNotActive     = newRuleError(KindValidation, "turn_not_active", "no turn is in progress")

	ErrResourceExhaustion = newRuleError(KindResourceExhaustion, "resource_exhaustion", "the piles cannot supply the required draw")
	ErrRoomUnavailable    = newRuleError(KindRoomUnavailable, "room_unavailable", "not enough players are connected")
)

// Store errors.
var (
	ErrDeskNotFound    = errors.New("desk not found")
	ErrVersionConflict = errors.New("desk version conflict")
	ErrRoomNotFound    = errors.New("room not found")
	ErrPlayerNotFound  = errors.New("player not found")
)

// violation wraps a sentinel with detail while keeping errors.Is working.
func violation(sentinel *RuleError, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of a rule error, or KindInternal for anything else.
func KindOf(err error) ErrorKind {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of a rule error, or "internal".
func CodeOf(err error) string {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code
	}
	return "internal"
}

// penalized reports whether a failed command is answered with a penalty draw.
func penalized(err error) bool {
	if errors.Is(err, ErrSpecialLogicLimit) || errors.Is(err, ErrNotPlayer) || errors.Is(err, ErrTurnNotActive) {
		return false
	}
	switch KindOf(err) {
	case KindValidation, KindTurnViolation:
		return true
	}
	return false
}
