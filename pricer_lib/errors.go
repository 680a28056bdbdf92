package pricer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a caller mistake: a parameter outside its domain.
	// It is always returned before any arithmetic is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNumericalInstability marks inputs that passed validation but fall
	// outside the region where the selected model is well-posed.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrModelUnsupported is returned when a model is asked to represent an
	// exercise style it cannot express. It wraps ErrInvalidInput.
	ErrModelUnsupported = fmt.Errorf("%w: model does not support exercise style", ErrInvalidInput)
)

// IsInvalidInput reports whether err was caused by invalid caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNumericalInstability reports whether err signals a model-applicability
// boundary rather than a caller mistake.
func IsNumericalInstability(err error) bool {
	return errors.Is(err, ErrNumericalInstability)
}
