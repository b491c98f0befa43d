package engine

import (
	"fmt"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// TransportError reports a failed directory fetch: connectivity, non-2xx status,
// or a payload that could not be decoded. The pipeline recovers it into a Failed state.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", config.ErrFetch, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", config.ErrFetch, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a birth date that does not match YYYY-MM-DD.
// It is not recoverable: ordering cannot be trusted once one date is bad.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %v", config.ErrDateParse, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
