package generation

import (
	"errors"
	"fmt"
	"math"

	"windfarm-impact/internal/hourkey"
)

var (
	// ErrInvalidGeneration is returned for NaN or infinite generation values.
	ErrInvalidGeneration = errors.New("generation: invalid generation value")
	// ErrPowerCurveUnavailable is returned by wind-speed based estimation, which has no turbine power curve yet.
	ErrPowerCurveUnavailable = errors.New("generation: power curve estimation not implemented")
)

// Record is the new resource's generation in one hour.
type Record struct {
	Hour          hourkey.Key
	GenerationMWh float64
}

// Profile is an immutable hourly generation profile. When a key appears more
// than once the first record wins.
type Profile struct {
	records []Record
	index   map[hourkey.Key]int
}

// NewProfile copies and indexes records.
func NewProfile(records []Record) (Profile, error) {
	p := Profile{
		records: append([]Record(nil), records...),
		index:   make(map[hourkey.Key]int, len(records)),
	}
	for i, r := range p.records {
		if math.IsNaN(r.GenerationMWh) || math.IsInf(r.GenerationMWh, 0) {
			return Profile{}, fmt.Errorf("%w: %s", ErrInvalidGeneration, r.Hour)
		}
		if _, ok := p.index[r.Hour]; !ok {
			p.index[r.Hour] = i
		}
	}
	return p, nil
}

// At returns the generation for an hour.
func (p Profile) At(k hourkey.Key) (float64, bool) {
	i, ok := p.index[k]
	if !ok {
		return 0, false
	}
	return p.records[i].GenerationMWh, true
}

// Len returns the number of records.
func (p Profile) Len() int { return len(p.records) }

// Records returns a copy of the records in load order.
func (p Profile) Records() []Record {
	return append([]Record(nil), p.records...)
}

// Keys returns the hour of every record in load order, duplicates included.
func (p Profile) Keys() []hourkey.Key {
	keys := make([]hourkey.Key, len(p.records))
	for i, r := range p.records {
		keys[i] = r.Hour
	}
	return keys
}

// TotalMWh sums the first record of every hour.
func (p Profile) TotalMWh() float64 {
	var total float64
	for _, i := range p.index {
		total += p.records[i].GenerationMWh
	}
	return total
}

// PeakMWh returns the largest hourly generation.
func (p Profile) PeakMWh() float64 {
	var peak float64
	for _, r := range p.records {
		if r.GenerationMWh > peak {
			peak = r.GenerationMWh
		}
	}
	return peak
}

// EstimateFromWindSpeed converts an averaged hub-height wind speed profile to
// generation. It needs a turbine power curve, which is not available.
func EstimateFromWindSpeed(speeds []hourkey.Mean, nameplateMW float64) (Profile, error) {
	_ = speeds
	_ = nameplateMW
	return Profile{}, ErrPowerCurveUnavailable
}
