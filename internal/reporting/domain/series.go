package reporting

import (
	"sort"

	emissions "windfarm-impact/internal/emissions/domain"
	"windfarm-impact/internal/hourkey"
)

// WeekTotal is grid and new generation summed over one week of the year.
type WeekTotal struct {
	Week              int
	GridGenerationMWh float64
	NewGenerationMWh  float64
	NetGenerationMWh  float64
}

// WeeklyTotals groups generation by Sunday-start week of the year. Weeks
// present in only one input are kept with zero on the other side.
func WeeklyTotals(results []emissions.HourlyAllocationResult, grid []emissions.GridEmissionsRow) []WeekTotal {
	weeks := make(map[int]*WeekTotal)
	get := func(k hourkey.Key) *WeekTotal {
		w := k.Week()
		total, ok := weeks[w]
		if !ok {
			total = &WeekTotal{Week: w}
			weeks[w] = total
		}
		return total
	}
	for _, row := range grid {
		get(row.Hour).GridGenerationMWh += row.GenerationMWh
	}
	for _, r := range results {
		if r.Failed() {
			continue
		}
		get(r.Hour).NewGenerationMWh += r.GenerationMWh
	}

	out := make([]WeekTotal, 0, len(weeks))
	for _, total := range weeks {
		total.NetGenerationMWh = total.GridGenerationMWh - total.NewGenerationMWh
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out
}

// DurationPoint is one step of a generation duration curve.
type DurationPoint struct {
	Rank          int
	Percent       float64
	GenerationMWh float64
}

// DurationCurve sorts hourly new generation in descending order. Percent is the
// rank as a share of a full year.
func DurationCurve(results []emissions.HourlyAllocationResult) []DurationPoint {
	values := make([]float64, 0, len(results))
	for _, r := range results {
		if !r.Failed() {
			values = append(values, r.GenerationMWh)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	out := make([]DurationPoint, len(values))
	for i, v := range values {
		out[i] = DurationPoint{
			Rank:          i + 1,
			Percent:       float64(i+1) / hourkey.HoursPerYear * 100,
			GenerationMWh: v,
		}
	}
	return out
}

// RateChange is the per-hour percent change of the marginal emissions rate.
type RateChange struct {
	Hour    hourkey.Key
	Percent float64
}

// RateChanges returns the percent change in marginal rate for every successful
// hour, NaN where the before rate is zero.
func RateChanges(results []emissions.HourlyAllocationResult) []RateChange {
	out := make([]RateChange, 0, len(results))
	for _, r := range results {
		if r.Failed() {
			continue
		}
		out = append(out, RateChange{Hour: r.Hour, Percent: PercentChange(r.MarginalRateBefore, r.MarginalRateAfter)})
	}
	return out
}
