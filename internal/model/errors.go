package model

import "errors"

// Error kinds shared by every marketplace operation. Callers match them with errors.Is;
// operations wrap them with detail via fmt.Errorf("%w: ...").
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrSelfBid           = errors.New("cannot bid on own order")
	ErrConflict          = errors.New("conflict")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrSelfBid, "self_bid"},
	{ErrConflict, "conflict"},
}

// ErrorKind returns the stable kind of a domain error, or "internal" for anything else.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// Retryable reports whether the caller may re-fetch state and try again.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
