package emissions

import "errors"

var (
	// ErrMissingJoinKey is returned when a grid hour has no generation or price record.
	ErrMissingJoinKey = errors.New("emissions: missing join key")
	// ErrInsufficientFuelMixData is returned when a load-weighted rate is undefined for an hour.
	ErrInsufficientFuelMixData = errors.New("emissions: insufficient fuel mix data")
	// ErrUnknownFuelCategory is returned when a fuel has no emissions rate.
	ErrUnknownFuelCategory = errors.New("emissions: unknown fuel category")
	// ErrInvalidRate is returned for negative or non-finite emissions rates.
	ErrInvalidRate = errors.New("emissions: invalid emissions rate")
	// ErrInvalidMode is returned for an unsupported allocation mode.
	ErrInvalidMode = errors.New("emissions: invalid allocation mode")
	// ErrInvalidThreshold is returned for a non-finite curtailment threshold.
	ErrInvalidThreshold = errors.New("emissions: invalid threshold price")
)
