package domain

import "errors"

// ValidationError is returned when a trade request is rejected on its
// inputs: non-positive quantity, unknown side, insufficient funds or
// holdings. No state is mutated when one is returned.
type ValidationError struct {
	Op     string // Operation that rejected the request (e.g. "buy", "sell")
	Reason string // Human-readable reason, surfaced to the caller
}

func (e *ValidationError) Error() string {
	return e.Op + ": " + e.Reason
}

// NotFoundError is returned when a referenced entity does not exist.
// It is distinct from ValidationError so callers can tell "bad input"
// apart from "missing entity".
type NotFoundError struct {
	Kind string // "account" or "instrument"
	Key  string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found: " + e.Key
}

// IsValidation checks whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound checks whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
