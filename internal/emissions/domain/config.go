package emissions

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects how the engine reports an hour's impact.
type Mode string

const (
	// ModeMarginalRate reports marginal emissions rates before and after the new
	// generation, with price-driven curtailment.
	ModeMarginalRate Mode = "marginal-rate"
	// ModeAvoidedMass reports avoided emissions mass without a curtailment branch.
	ModeAvoidedMass Mode = "avoided-mass"
)

// DefaultThresholdPrice is the onshore wind curtailment price in $/MWh (2019 NESCOE economic study).
const DefaultThresholdPrice = 4.0

// ParseMode parses a mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeMarginalRate:
		return ModeMarginalRate, nil
	case ModeAvoidedMass:
		return ModeAvoidedMass, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, value)
	}
}

// Config is the engine configuration. It is copied into the engine at construction.
type Config struct {
	ThresholdPrice float64
	Rates          RateTable
	Mode           Mode
	// Strict aborts allocation on the first failed hour.
	Strict bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ThresholdPrice: DefaultThresholdPrice,
		Rates:          DefaultRateTable(),
		Mode:           ModeMarginalRate,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if math.IsNaN(c.ThresholdPrice) || math.IsInf(c.ThresholdPrice, 0) {
		return ErrInvalidThreshold
	}
	if c.Mode != ModeMarginalRate && c.Mode != ModeAvoidedMass {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if c.Rates.Len() == 0 {
		return fmt.Errorf("%w: empty rate table", ErrInvalidRate)
	}
	return nil
}
