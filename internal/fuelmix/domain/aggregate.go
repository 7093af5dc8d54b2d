package fuelmix

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"windfarm-impact/internal/hourkey"
)

// DroppedSnapshot is a snapshot excluded from aggregation.
type DroppedSnapshot struct {
	Index    int
	Snapshot DispatchSnapshot
	Reason   error
}

// AggregateResult is the hourly table plus the snapshots that were dropped.
type AggregateResult struct {
	Table   Table
	Dropped []DroppedSnapshot
}

type groupKey struct {
	hour hourkey.Key
	fuel FuelCategory
}

type groupAcc struct {
	sum     float64
	samples int
}

// Aggregate collapses sub-hourly snapshots into one record per hour and fuel.
//
// Generation is the arithmetic mean of the snapshots in the hour, not an
// integral. The fuel of the earliest snapshot flagged Yes in an hour is marginal
// for the whole hour; equal timestamps resolve in input order.
func Aggregate(snapshots []DispatchSnapshot) (AggregateResult, error) {
	order := make([]int, len(snapshots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return snapshots[order[a]].Timestamp.Before(snapshots[order[b]].Timestamp)
	})

	var result AggregateResult
	groups := make(map[groupKey]*groupAcc)
	firstMarginal := make(map[hourkey.Key]FuelCategory)

	for _, i := range order {
		snap := snapshots[i]
		fuel := FuelCategory(strings.TrimSpace(string(snap.Fuel)))
		if fuel == "" {
			result.Dropped = append(result.Dropped, DroppedSnapshot{Index: i, Snapshot: snap,
				Reason: fmt.Errorf("%w: missing fuel category", ErrMissingDataDropped)})
			continue
		}
		if math.IsNaN(snap.GenerationMW) || math.IsInf(snap.GenerationMW, 0) {
			result.Dropped = append(result.Dropped, DroppedSnapshot{Index: i, Snapshot: snap,
				Reason: fmt.Errorf("%w: missing generation", ErrMissingDataDropped)})
			continue
		}

		hour, err := hourkey.FromTime(hourkey.Floor(snap.Timestamp))
		if err != nil {
			if !errors.Is(err, hourkey.ErrLeapDay) {
				err = fmt.Errorf("%w: %v", ErrMissingDataDropped, err)
			}
			result.Dropped = append(result.Dropped, DroppedSnapshot{Index: i, Snapshot: snap, Reason: err})
			continue
		}

		key := groupKey{hour: hour, fuel: fuel}
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{}
			groups[key] = acc
		}
		acc.sum += snap.GenerationMW
		acc.samples++

		if snap.Marginal == MarginalYes {
			if _, seen := firstMarginal[hour]; !seen {
				firstMarginal[hour] = fuel
			}
		}
	}

	if len(groups) == 0 {
		return result, ErrEmptyFuelMix
	}

	records := make([]Record, 0, len(groups))
	for key, acc := range groups {
		marginalFuel, flagged := firstMarginal[key.hour]
		records = append(records, Record{
			Hour:          key.hour,
			Fuel:          key.fuel,
			GenerationMWh: acc.sum / float64(acc.samples),
			Marginal:      flagged && marginalFuel == key.fuel,
			Samples:       acc.samples,
		})
	}

	table, err := NewTable(records)
	if err != nil {
		return result, err
	}
	result.Table = table
	return result, nil
}
