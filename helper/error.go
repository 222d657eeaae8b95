package helper

import (
	"errors"
	"fmt"
)

var (
	// ErrTransientService marks an embedding or language model call that failed
	// because the service was unavailable, rate limited or timed out.
	ErrTransientService = errors.New("transient service error")
	// ErrDegenerateInput marks input too small or too uniform to reduce or cluster.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrMalformedResponse marks a service response that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrConfiguration marks missing or invalid startup configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrDimensionMismatch marks vectors of different length compared together.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptyText marks an empty canonical text submitted for embedding.
	ErrEmptyText = errors.New("empty text")
)

// Error wraps an error with the step it happened in.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a description of the failing step.
func NewError(step string, err error) error {
	return &Error{Step: step, Err: err}
}
