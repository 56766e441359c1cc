package detect

import (
	"errors"
	"fmt"
)

// Detector errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNilStore     = errors.New("lexicon store is nil")
)

// InvalidInputError reports a detection input that is not text
type InvalidInputError struct {
	Got string // Dynamic type of the rejected value
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%v: expected a string, got %s", ErrInvalidInput, e.Got)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}
