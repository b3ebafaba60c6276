package game

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package wraps exactly one of
// them, so callers classify with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrTurnViolation = errors.New("turn violation")
	ErrState         = errors.New("illegal state")
	ErrNotFound      = errors.New("not found")
	ErrDeckExhausted = errors.New("deck exhausted")
)

var (
	ErrNotEnoughPlayers = fmt.Errorf("%w: at least two seated players with chips are required", ErrState)
	ErrHandInProgress   = fmt.Errorf("%w: a hand is in progress", ErrState)
	ErrNoActiveRound    = fmt.Errorf("%w: no betting round is active", ErrState)
	ErrSeatTaken        = fmt.Errorf("%w: seat is occupied", ErrState)
	ErrAlreadyAtTable   = fmt.Errorf("%w: player is already at the table", ErrState)
	ErrNoChips          = fmt.Errorf("%w: player has no chips", ErrState)
	ErrNotPlayerTurn    = fmt.Errorf("%w: not the acting seat", ErrTurnViolation)
	ErrPlayerNotSeated  = fmt.Errorf("%w: player is not seated", ErrNotFound)
	ErrPlayerNotAtTable = fmt.Errorf("%w: player is not at the table", ErrNotFound)
	ErrInvalidPosition  = fmt.Errorf("%w: seat position out of range", ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("%w: amount must not be negative", ErrValidation)
)

// Kind returns the short class name of err, used on the wire.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTurnViolation):
		return "turn_violation"
	case errors.Is(err, ErrState):
		return "state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
