package hourkey

import "errors"

var (
	// ErrInvalidTimestamp is returned when a timestamp cannot be parsed.
	ErrInvalidTimestamp = errors.New("hourkey: invalid timestamp")
	// ErrAmbiguousHourEnding is returned when an hour-ending value is outside [1,24] or not numeric.
	ErrAmbiguousHourEnding = errors.New("hourkey: ambiguous hour ending")
	// ErrLeapDay is returned for February 29 timestamps, which have no hour key.
	ErrLeapDay = errors.New("hourkey: leap day excluded")
	// ErrIncompleteYear is returned when a dataset does not cover every hour of the year exactly once.
	ErrIncompleteYear = errors.New("hourkey: incomplete year")
)
