package fuelmix

import (
	"errors"
	"math"
	"testing"
	"time"

	"windfarm-impact/internal/hourkey"
)

func at(hour, minute int) time.Time {
	return time.Date(2021, 1, 1, hour, minute, 0, 0, time.UTC)
}

func TestAggregateMeanPerHourAndFuel(t *testing.T) {
	snaps := []DispatchSnapshot{
		{Timestamp: at(0, 0), Fuel: FuelNaturalGas, GenerationMW: 100, Marginal: MarginalNo},
		{Timestamp: at(0, 5), Fuel: FuelNaturalGas, GenerationMW: 200, Marginal: MarginalNo},
		{Timestamp: at(0, 55), Fuel: FuelNaturalGas, GenerationMW: 300, Marginal: MarginalNo},
		{Timestamp: at(0, 0), Fuel: FuelNuclear, GenerationMW: 3000, Marginal: MarginalNo},
		{Timestamp: at(1, 0), Fuel: FuelNaturalGas, GenerationMW: 50, Marginal: MarginalNo},
	}
	res, err := Aggregate(snaps)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if res.Table.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", res.Table.Len())
	}
	hour0 := res.Table.Hour(hourkey.Key{Month: time.January, Day: 1})
	if len(hour0) != 2 {
		t.Fatalf("expected 2 fuels in hour 0, got %d", len(hour0))
	}
	if hour0[0].Fuel != FuelNaturalGas || math.Abs(hour0[0].GenerationMWh-200) > 1e-9 || hour0[0].Samples != 3 {
		t.Fatalf("unexpected gas record %+v", hour0[0])
	}
	if len(res.Table.Hours()) != 2 {
		t.Fatalf("expected 2 hours, got %d", len(res.Table.Hours()))
	}
}

func TestAggregateFirstMarginalWins(t *testing.T) {
	snaps := []DispatchSnapshot{
		{Timestamp: at(3, 30), Fuel: FuelCoal, GenerationMW: 10, Marginal: MarginalYes},
		{Timestamp: at(3, 10), Fuel: FuelNaturalGas, GenerationMW: 10, Marginal: MarginalYes},
		{Timestamp: at(3, 0), Fuel: FuelOil, GenerationMW: 10, Marginal: MarginalNo},
		{Timestamp: at(3, 45), Fuel: FuelNaturalGas, GenerationMW: 10, Marginal: MarginalNo},
	}
	res, err := Aggregate(snaps)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	var marginal []FuelCategory
	for _, r := range res.Table.Records() {
		if r.Marginal {
			marginal = append(marginal, r.Fuel)
		}
	}
	if len(marginal) != 1 || marginal[0] != FuelNaturalGas {
		t.Fatalf("expected only natural gas marginal, got %v", marginal)
	}
}

func TestAggregateEqualTimestampsResolveInInputOrder(t *testing.T) {
	snaps := []DispatchSnapshot{
		{Timestamp: at(4, 0), Fuel: FuelOil, GenerationMW: 1, Marginal: MarginalYes},
		{Timestamp: at(4, 0), Fuel: FuelCoal, GenerationMW: 1, Marginal: MarginalYes},
	}
	res, err := Aggregate(snaps)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	for _, r := range res.Table.Records() {
		if r.Marginal != (r.Fuel == FuelOil) {
			t.Fatalf("unexpected marginal flag on %+v", r)
		}
	}
}

func TestAggregateDropsMissingData(t *testing.T) {
	snaps := []DispatchSnapshot{
		{Timestamp: at(0, 0), Fuel: "", GenerationMW: 10},
		{Timestamp: at(0, 0), Fuel: FuelHydro, GenerationMW: math.NaN()},
		{Timestamp: time.Date(2020, 2, 29, 1, 0, 0, 0, time.UTC), Fuel: FuelHydro, GenerationMW: 5},
		{Timestamp: at(0, 0), Fuel: FuelHydro, GenerationMW: 7},
	}
	res, err := Aggregate(snaps)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if res.Table.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", res.Table.Len())
	}
	if len(res.Dropped) != 3 {
		t.Fatalf("expected 3 dropped snapshots, got %d", len(res.Dropped))
	}
	missing := 0
	leap := 0
	for _, d := range res.Dropped {
		switch {
		case errors.Is(d.Reason, ErrMissingDataDropped):
			missing++
		case errors.Is(d.Reason, hourkey.ErrLeapDay):
			leap++
		}
	}
	if missing != 2 || leap != 1 {
		t.Fatalf("expected 2 missing and 1 leap drop, got %d and %d", missing, leap)
	}
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate([]DispatchSnapshot{{Timestamp: at(0, 0), GenerationMW: 1}})
	if !errors.Is(err, ErrEmptyFuelMix) {
		t.Fatalf("expected ErrEmptyFuelMix, got %v", err)
	}
}

func TestParseMarginalIndicator(t *testing.T) {
	cases := map[string]MarginalIndicator{
		"Yes": MarginalYes,
		"Y":   MarginalYes,
		" no": MarginalNo,
		"N":   MarginalNo,
		"":    MarginalEmpty,
		"?":   MarginalEmpty,
	}
	for in, want := range cases {
		if got := ParseMarginalIndicator(in); got != want {
			t.Fatalf("ParseMarginalIndicator(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	k := hourkey.Key{Month: time.March, Day: 1}
	_, err := NewTable([]Record{{Hour: k, Fuel: FuelCoal}, {Hour: k, Fuel: FuelCoal}})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
}
