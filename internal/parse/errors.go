package parse

import (
	"errors"

	"kashela/internal/core"
)

// Reasons reported by the parsers. They are surfaced verbatim to API clients.
const (
	ReasonMissingType     = "missing transaction type"
	ReasonMissingAmount   = "missing amount"
	ReasonInvalidAmount   = "invalid amount"
	ReasonMissingCategory = "missing category"
	ReasonAmountNotFound  = "amount not found"
	ReasonInvalidRecord   = "invalid transaction"
)

// ParseError reports why a piece of free text could not be turned into a
// transaction. No partial record accompanies it.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func failf(reason string, err error) error {
	return &ParseError{Reason: reason, Err: err}
}

// recordError classifies a record construction failure. Only a rejected
// amount is reported as an invalid amount.
func recordError(err error) error {
	if errors.Is(err, core.ErrInvalidAmount) {
		return failf(ReasonInvalidAmount, err)
	}
	return failf(ReasonInvalidRecord, err)
}

// IsParseError reports whether err (or anything it wraps) is a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
