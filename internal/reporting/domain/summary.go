package reporting

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
)

// Failure kinds used in Summary.Failures.
const (
	FailureMissingJoinKey      = "missing_join_key"
	FailureNoMarginalUnit      = "no_marginal_unit"
	FailureInsufficientFuelMix = "insufficient_fuel_mix"
	FailureUnknownFuelCategory = "unknown_fuel_category"
	FailureOther               = "other"
)

// Options tune the summary.
type Options struct {
	// NameplateMW is the new resource's capacity; zero leaves CapacityFactor NaN.
	NameplateMW float64
}

// Summary holds the headline statistics of one allocation pass.
// Ratios with a zero denominator are NaN.
type Summary struct {
	Hours       int
	FailedHours int
	Failures    map[string]int

	GridGenerationMWh       float64
	GridEmissionsLbs        float64
	GridAverageRate         float64
	NewGenerationMWh        float64
	DispatchedGenerationMWh float64

	MeanRateBefore float64
	MeanRateAfter  float64
	RateChangePct  float64

	CurtailedHours         int
	CurtailedGenerationMWh float64
	CurtailedSharePct      float64

	AvoidedEmissionsLbs    float64
	AvoidedEmissionsTonnes float64
	AvoidedRate            float64
	CapacityFactor         float64
}

// Summarize reduces per-hour results and grid rows to a Summary. Failed hours
// are counted but excluded from every total.
func Summarize(results []emissions.HourlyAllocationResult, grid []emissions.GridEmissionsRow, opts Options) Summary {
	s := Summary{Failures: make(map[string]int)}

	var before, after []float64
	for _, r := range results {
		s.Hours++
		if r.Failed() {
			s.FailedHours++
			s.Failures[FailureKind(r.Err)]++
			continue
		}
		s.NewGenerationMWh += r.GenerationMWh
		before = append(before, r.MarginalRateBefore)
		after = append(after, r.MarginalRateAfter)
		if r.Curtailed {
			s.CurtailedHours++
			s.CurtailedGenerationMWh += r.GenerationMWh
			continue
		}
		s.DispatchedGenerationMWh += r.GenerationMWh
		s.AvoidedEmissionsLbs += r.AvoidedEmissionsLbs
	}

	for _, row := range grid {
		s.GridGenerationMWh += row.GenerationMWh
		if !math.IsNaN(row.EmissionsLbs) {
			s.GridEmissionsLbs += row.EmissionsLbs
		}
	}
	s.GridAverageRate = ratio(s.GridEmissionsLbs, s.GridGenerationMWh)

	s.MeanRateBefore = mean(before)
	s.MeanRateAfter = mean(after)
	s.RateChangePct = PercentChange(s.MeanRateBefore, s.MeanRateAfter)

	s.CurtailedSharePct = ratio(s.CurtailedGenerationMWh, s.NewGenerationMWh) * 100
	s.AvoidedEmissionsTonnes = s.AvoidedEmissionsLbs / emissions.LbsPerMetricTon
	s.AvoidedRate = ratio(s.AvoidedEmissionsLbs, s.DispatchedGenerationMWh)
	s.CapacityFactor = ratio(s.NewGenerationMWh, opts.NameplateMW*float64(hourkey.HoursPerYear))
	return s
}

// FailureKind classifies a per-hour error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, emissions.ErrMissingJoinKey):
		return FailureMissingJoinKey
	case errors.Is(err, fuelmix.ErrNoMarginalUnitResolvable):
		return FailureNoMarginalUnit
	case errors.Is(err, emissions.ErrInsufficientFuelMixData):
		return FailureInsufficientFuelMix
	case errors.Is(err, emissions.ErrUnknownFuelCategory):
		return FailureUnknownFuelCategory
	default:
		return FailureOther
	}
}

// PercentChange returns (after-before)/before*100, NaN when before is zero.
func PercentChange(before, after float64) float64 {
	return ratio(after-before, before) * 100
}

// WeightedRate returns the generation weighted mean of per-row emissions rates.
// Rows with an unknown rate are skipped.
func WeightedRate(grid []emissions.GridEmissionsRow) float64 {
	var rates, weights []float64
	for _, row := range grid {
		if math.IsNaN(row.EmissionsRate) {
			continue
		}
		rates = append(rates, row.EmissionsRate)
		weights = append(weights, row.GenerationMWh)
	}
	if len(rates) == 0 || floats.Sum(weights) == 0 {
		return math.NaN()
	}
	return stat.Mean(rates, weights)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
