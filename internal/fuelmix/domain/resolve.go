package fuelmix

import (
	"fmt"

	"windfarm-impact/internal/hourkey"
)

// DefaultFallbackFuel is assumed marginal when an hour has no flagged record.
const DefaultFallbackFuel = FuelNaturalGas

// Resolution records which fuel is marginal in an hour. Cleared counts the
// extra flagged records that lost their flag.
type Resolution struct {
	Hour            hourkey.Key
	Fuel            FuelCategory
	FallbackApplied bool
	Cleared         int
}

// ResolvedTable is a fuel mix table whose marginal flags are final.
// Hours listed in Failures have no marginal record.
type ResolvedTable struct {
	Table       Table
	Resolutions map[hourkey.Key]Resolution
	Failures    map[hourkey.Key]error
}

// Resolution returns the marginal resolution for an hour.
func (r ResolvedTable) Resolution(k hourkey.Key) (Resolution, bool) {
	res, ok := r.Resolutions[k]
	return res, ok
}

// Failure returns the resolution failure for an hour, if any.
func (r ResolvedTable) Failure(k hourkey.Key) error {
	return r.Failures[k]
}

// FallbackCount returns how many hours used the fallback fuel.
func (r ResolvedTable) FallbackCount() int {
	var n int
	for _, res := range r.Resolutions {
		if res.FallbackApplied {
			n++
		}
	}
	return n
}

// ClearedCount returns how many hours had more than one flagged record.
func (r ResolvedTable) ClearedCount() int {
	var n int
	for _, res := range r.Resolutions {
		if res.Cleared > 0 {
			n++
		}
	}
	return n
}

// ResolveMarginalFlags returns a new table in which every hour has exactly one
// marginal record. The first flagged record in fuel order wins and any others
// are cleared. Hours without one get the fallback fuel flagged; hours lacking
// the fallback fuel are reported as ErrNoMarginalUnitResolvable. The input
// table is not modified.
func ResolveMarginalFlags(t Table, fallback FuelCategory) (ResolvedTable, error) {
	if fallback == "" {
		return ResolvedTable{}, ErrEmptyFallbackFuel
	}

	resolved := ResolvedTable{
		Resolutions: make(map[hourkey.Key]Resolution, len(t.hours)),
		Failures:    make(map[hourkey.Key]error),
	}
	records := t.Records()

	for _, hour := range t.hours {
		idx := t.byHour[hour]

		flagged := -1
		fallbackIdx := -1
		cleared := 0
		for _, i := range idx {
			if records[i].Marginal {
				if flagged < 0 {
					flagged = i
				} else {
					records[i].Marginal = false
					cleared++
				}
			}
			if records[i].Fuel == fallback {
				fallbackIdx = i
			}
		}

		switch {
		case flagged >= 0:
			resolved.Resolutions[hour] = Resolution{Hour: hour, Fuel: records[flagged].Fuel, Cleared: cleared}
		case fallbackIdx >= 0:
			records[fallbackIdx].Marginal = true
			resolved.Resolutions[hour] = Resolution{Hour: hour, Fuel: fallback, FallbackApplied: true}
		default:
			resolved.Failures[hour] = hourkey.Wrap(hour,
				fmt.Errorf("%w: no flagged record and no %q record", ErrNoMarginalUnitResolvable, fallback))
		}
	}

	table, err := NewTable(records)
	if err != nil {
		return ResolvedTable{}, err
	}
	resolved.Table = table
	return resolved, nil
}
