package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest marks requests naming a pile or card that does not exist.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvariantViolation marks an internal-consistency fault in a game state.
	ErrInvariantViolation = errors.New("invariant violation")
)

// RequestError reports an invalid pile id or card index. The state is untouched.
type RequestError struct {
	Reason Reason
	Msg    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("invalid request (%s): %s", e.Reason, e.Msg)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

func invalidRequest(format string, args ...any) *RequestError {
	return &RequestError{Reason: ReasonPileOutOfRange, Msg: fmt.Sprintf(format, args...)}
}

// InvariantError lists every invariant a state breaks.
type InvariantError struct {
	Problems []string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + strings.Join(e.Problems, "; ")
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }
