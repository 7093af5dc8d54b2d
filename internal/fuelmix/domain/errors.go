package fuelmix

import "errors"

var (
	// ErrMissingDataDropped marks a dispatch snapshot dropped for missing generation or fuel category.
	ErrMissingDataDropped = errors.New("fuelmix: missing data dropped")
	// ErrNoMarginalUnitResolvable is returned when neither a flagged record nor the fallback fuel exists for an hour.
	ErrNoMarginalUnitResolvable = errors.New("fuelmix: no marginal unit resolvable")
	// ErrDuplicateRecord is returned when a table has two records for the same hour and fuel.
	ErrDuplicateRecord = errors.New("fuelmix: duplicate hour fuel record")
	// ErrEmptyFuelMix is returned when no usable snapshot remains after filtering.
	ErrEmptyFuelMix = errors.New("fuelmix: empty fuel mix")
	// ErrEmptyFallbackFuel is returned when the resolver has no fallback fuel configured.
	ErrEmptyFallbackFuel = errors.New("fuelmix: empty fallback fuel")
)
