package emissions

import (
	"fmt"
	"math"
	"sort"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
)

// RateTable maps fuel categories to CO2 emissions rates in lbs/MWh.
type RateTable struct {
	rates map[fuelmix.FuelCategory]float64
}

// DefaultRateTable returns EPA eGRID 2020 rates for the NPCC New England subregion.
// Biomass, storage and demand response are treated as zero-emission.
func DefaultRateTable() RateTable {
	return RateTable{rates: map[fuelmix.FuelCategory]float64{
		fuelmix.FuelOil:         3374.668,
		fuelmix.FuelCoal:        2277.021,
		fuelmix.FuelNaturalGas:  850.537,
		fuelmix.FuelRefuse:      0,
		fuelmix.FuelWood:        0,
		fuelmix.FuelLandfillGas: 0,
		fuelmix.FuelNuclear:     0,
		fuelmix.FuelHydro:       0,
		fuelmix.FuelSolar:       0,
		fuelmix.FuelWind:        0,
		fuelmix.FuelOther:       0,
	}}
}

// NewRateTable validates and copies rates.
func NewRateTable(rates map[fuelmix.FuelCategory]float64) (RateTable, error) {
	t := RateTable{rates: make(map[fuelmix.FuelCategory]float64, len(rates))}
	for fuel, rate := range rates {
		if err := validateRate(fuel, rate); err != nil {
			return RateTable{}, err
		}
		t.rates[fuel] = rate
	}
	return t, nil
}

// With returns a copy of t with overrides applied.
func (t RateTable) With(overrides map[fuelmix.FuelCategory]float64) (RateTable, error) {
	merged := make(map[fuelmix.FuelCategory]float64, len(t.rates)+len(overrides))
	for fuel, rate := range t.rates {
		merged[fuel] = rate
	}
	for fuel, rate := range overrides {
		merged[fuel] = rate
	}
	return NewRateTable(merged)
}

// Rate returns the emissions rate of a fuel.
func (t RateTable) Rate(fuel fuelmix.FuelCategory) (float64, bool) {
	rate, ok := t.rates[fuel]
	return rate, ok
}

// Fuels returns the fuels in the table, sorted by name.
func (t RateTable) Fuels() []fuelmix.FuelCategory {
	fuels := make([]fuelmix.FuelCategory, 0, len(t.rates))
	for fuel := range t.rates {
		fuels = append(fuels, fuel)
	}
	sort.Slice(fuels, func(i, j int) bool { return fuels[i] < fuels[j] })
	return fuels
}

// Len returns the number of fuels.
func (t RateTable) Len() int { return len(t.rates) }

func validateRate(fuel fuelmix.FuelCategory, rate float64) error {
	if fuel == "" || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: %q=%v", ErrInvalidRate, fuel, rate)
	}
	return nil
}
