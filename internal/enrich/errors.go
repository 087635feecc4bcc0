package enrich

import (
	"errors"
	"fmt"
)

// ErrInvalidPhone means validation completed and rejected the number. This is
// a caller-correctable outcome, distinct from a lookup failure.
var ErrInvalidPhone = errors.New("invalid phone number")

// LookupError reports a non-success transport status from an external
// service. Treated as a dependency outage by callers.
type LookupError struct {
	Service string
	Status  int
	Detail  string
}

func (e *LookupError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s lookup failed (status %d): %s", e.Service, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s lookup failed (status %d)", e.Service, e.Status)
}

// NotFoundError reports a successful call whose result set was empty: the
// service answered but does not know the given input.
type NotFoundError struct {
	Service string
	Query   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: no match for %q", e.Service, e.Query)
}
