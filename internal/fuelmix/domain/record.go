package fuelmix

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"windfarm-impact/internal/hourkey"
)

// FuelCategory names a generation fuel type as reported by the grid operator.
type FuelCategory string

// Fuel categories reported in ISO-NE dispatch fuel mix data.
const (
	FuelOil         FuelCategory = "Oil"
	FuelCoal        FuelCategory = "Coal"
	FuelNaturalGas  FuelCategory = "Natural Gas"
	FuelRefuse      FuelCategory = "Refuse"
	FuelWood        FuelCategory = "Wood"
	FuelLandfillGas FuelCategory = "Landfill Gas"
	FuelNuclear     FuelCategory = "Nuclear"
	FuelHydro       FuelCategory = "Hydro"
	FuelSolar       FuelCategory = "Solar"
	FuelWind        FuelCategory = "Wind"
	FuelOther       FuelCategory = "Other"
)

// MarginalIndicator is the per-snapshot marginal flag.
type MarginalIndicator string

const (
	MarginalYes   MarginalIndicator = "Yes"
	MarginalNo    MarginalIndicator = "No"
	MarginalEmpty MarginalIndicator = ""
)

// ParseMarginalIndicator accepts Yes/Y/true and No/N/false in any case.
func ParseMarginalIndicator(value string) MarginalIndicator {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true":
		return MarginalYes
	case "no", "n", "false":
		return MarginalNo
	default:
		return MarginalEmpty
	}
}

// DispatchSnapshot is one sub-hourly fuel mix reading.
// A NaN GenerationMW marks a missing reading.
type DispatchSnapshot struct {
	Timestamp    time.Time
	Fuel         FuelCategory
	GenerationMW float64
	Marginal     MarginalIndicator
}

// Record is the hourly generation of one fuel category.
type Record struct {
	Hour          hourkey.Key
	Fuel          FuelCategory
	GenerationMWh float64
	Marginal      bool
	Samples       int
}

// Table is an immutable set of hourly fuel records ordered by hour then fuel.
type Table struct {
	records []Record
	byHour  map[hourkey.Key][]int
	hours   []hourkey.Key
}

// NewTable validates and indexes records. The input slice is copied.
func NewTable(records []Record) (Table, error) {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Hour != sorted[j].Hour {
			return sorted[i].Hour.Less(sorted[j].Hour)
		}
		return sorted[i].Fuel < sorted[j].Fuel
	})

	t := Table{records: sorted, byHour: make(map[hourkey.Key][]int)}
	for i, r := range sorted {
		if i > 0 && sorted[i-1].Hour == r.Hour && sorted[i-1].Fuel == r.Fuel {
			return Table{}, fmt.Errorf("%w: %s %s", ErrDuplicateRecord, r.Hour, r.Fuel)
		}
		if _, ok := t.byHour[r.Hour]; !ok {
			t.hours = append(t.hours, r.Hour)
		}
		t.byHour[r.Hour] = append(t.byHour[r.Hour], i)
	}
	return t, nil
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.records) }

// Records returns a copy of all records.
func (t Table) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Hours returns the distinct hours in chronological order.
func (t Table) Hours() []hourkey.Key {
	return append([]hourkey.Key(nil), t.hours...)
}

// Hour returns a copy of the records for one hour.
func (t Table) Hour(k hourkey.Key) []Record {
	idx := t.byHour[k]
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.records[i])
	}
	return out
}

// TotalGenerationMWh sums generation across all records.
func (t Table) TotalGenerationMWh() float64 {
	var total float64
	for _, r := range t.records {
		total += r.GenerationMWh
	}
	return total
}
