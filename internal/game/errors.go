package game

import (
	"errors"
	"fmt"

	"github.com/robalobadob/numguess/internal/secret"
)

var (
	// ErrConfig marks an invalid range or non-positive attempt budget.
	ErrConfig = errors.New("invalid round configuration")
	// ErrRoundOver is returned by Submit once the round is won or lost.
	ErrRoundOver = errors.New("round is over")
	// ErrNotWon is returned by Score for a round that was not won.
	ErrNotWon = errors.New("round not won")

	ErrNotANumber = errors.New("not a number")
	ErrOutOfRange = errors.New("out of range")
)

// ValidationKind distinguishes the two ways a raw guess can be rejected.
type ValidationKind string

const (
	KindNotANumber ValidationKind = "not_a_number"
	KindOutOfRange ValidationKind = "out_of_range"
)

// ValidationError is a rejected guess. It never costs an attempt.
type ValidationError struct {
	Kind  ValidationKind
	Input string
	Range secret.Range
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindOutOfRange:
		return fmt.Sprintf("guess %q outside %s", e.Input, e.Range)
	default:
		return fmt.Sprintf("guess %q is not a whole number", e.Input)
	}
}

// Is lets callers match with errors.Is(err, ErrNotANumber) / ErrOutOfRange.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrNotANumber:
		return e.Kind == KindNotANumber
	case ErrOutOfRange:
		return e.Kind == KindOutOfRange
	}
	return false
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
