package valuation

import (
	"errors"
	"fmt"
)

var (
	// ErrSelectorTimeout marks a candidate query that exceeded its
	// deadline. Unlike the market path this cannot degrade: without
	// candidates there is no primary result.
	ErrSelectorTimeout = errors.New("candidate selection timed out")
)

// InvalidInputError rejects a request before any computation, carrying the
// offending field and a reason for the caller.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// IsInvalidInput reports whether err is a request-rejection error.
func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}
