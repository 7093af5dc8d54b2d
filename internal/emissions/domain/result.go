package emissions

import (
	"math"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
)

// LbsPerMetricTon converts pounds to metric tons.
const LbsPerMetricTon = 2204.62262

// Displacement describes how new generation interacts with the margin in an hour.
type Displacement string

const (
	// DisplacementCurtailed means the new generation was not dispatched.
	DisplacementCurtailed Displacement = "curtailed"
	// DisplacementMarginal means the marginal unit absorbs all new generation,
	// or the marginal unit is already zero-emission.
	DisplacementMarginal Displacement = "marginal"
	// DisplacementPartial means new generation exceeds the marginal unit's output
	// and the remainder displaces the blended non-marginal mix.
	DisplacementPartial Displacement = "partial"
)

// HourlyAllocationResult is the engine output for one hour. Err is set when the
// hour failed; the numeric fields are then unset. ExcessRate is the blended
// non-marginal rate charged on generation beyond the marginal unit's output.
// It can differ from MarginalRateAfter when the marginal unit is zero-emission.
type HourlyAllocationResult struct {
	Hour                  hourkey.Key
	GenerationMWh         float64
	Price                 float64
	MarginalFuel          fuelmix.FuelCategory
	MarginalGenerationMWh float64
	MarginalRateBefore    float64
	MarginalRateAfter     float64
	ExcessRate            float64
	Curtailed             bool
	Displacement          Displacement
	AvoidedEmissionsLbs   float64
	Err                   error
}

// Failed reports whether the hour failed.
func (r HourlyAllocationResult) Failed() bool { return r.Err != nil }

// ImpliedAvoidedLbs derives avoided mass from the allocation: the share
// absorbed by the marginal unit at the before rate plus the remainder at the
// excess rate.
func (r HourlyAllocationResult) ImpliedAvoidedLbs() float64 {
	absorbed := math.Min(r.GenerationMWh, r.MarginalGenerationMWh)
	excess := math.Max(0, r.GenerationMWh-r.MarginalGenerationMWh)
	return r.MarginalRateBefore*absorbed + r.ExcessRate*excess
}

// GridEmissionsRow is one fuel's generation and emissions in one hour.
// EmissionsRate is NaN when the fuel is missing from the rate table.
type GridEmissionsRow struct {
	Hour          hourkey.Key
	Fuel          fuelmix.FuelCategory
	GenerationMWh float64
	Marginal      bool
	EmissionsRate float64
	EmissionsLbs  float64
}

// Allocation is the result of one allocation pass.
type Allocation struct {
	Mode    Mode
	Results []HourlyAllocationResult
	Grid    []GridEmissionsRow
}

// Failures returns the failed hours.
func (a Allocation) Failures() []HourlyAllocationResult {
	var failed []HourlyAllocationResult
	for _, r := range a.Results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}
