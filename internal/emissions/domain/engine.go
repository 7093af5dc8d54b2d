package emissions

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/hourkey"
	pricing "windfarm-impact/internal/pricing/domain"
)

// Inputs are the three normalized hourly tables the engine joins on hour key.
type Inputs struct {
	FuelMix    fuelmix.ResolvedTable
	Generation generation.Profile
	Prices     pricing.Series
}

// Engine allocates the emissions impact of new generation hour by hour.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and returns an engine bound to it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Allocate evaluates every hour of the fuel mix table. A failed hour carries its
// error in the result and does not stop the pass unless the engine is strict.
func (e *Engine) Allocate(in Inputs) (Allocation, error) {
	hours := in.FuelMix.Table.Hours()
	out := Allocation{
		Mode:    e.cfg.Mode,
		Results: make([]HourlyAllocationResult, 0, len(hours)),
		Grid:    e.GridEmissions(in.FuelMix.Table),
	}
	for _, hour := range hours {
		res := e.AllocateHour(in, hour)
		if res.Failed() && e.cfg.Strict {
			return Allocation{}, res.Err
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

// AllocateHour evaluates a single hour.
func (e *Engine) AllocateHour(in Inputs, hour hourkey.Key) HourlyAllocationResult {
	res := HourlyAllocationResult{Hour: hour}
	fail := func(err error) HourlyAllocationResult {
		return HourlyAllocationResult{Hour: hour, Err: hourkey.Wrap(hour, err)}
	}

	g, ok := in.Generation.At(hour)
	if !ok {
		return fail(fmt.Errorf("%w: no generation record", ErrMissingJoinKey))
	}
	res.GenerationMWh = g

	if err := in.FuelMix.Failure(hour); err != nil {
		return HourlyAllocationResult{Hour: hour, Err: err}
	}
	var marginal, others []fuelmix.Record
	for _, r := range in.FuelMix.Table.Hour(hour) {
		if r.Marginal {
			marginal = append(marginal, r)
		} else {
			others = append(others, r)
		}
	}
	if len(marginal) == 0 {
		return fail(fuelmix.ErrNoMarginalUnitResolvable)
	}
	res.MarginalFuel = marginal[0].Fuel
	marginalRate, err := e.marginalRate(marginal)
	if err != nil {
		return fail(err)
	}
	for _, r := range marginal {
		res.MarginalGenerationMWh += r.GenerationMWh
	}

	price, ok := in.Prices.PriceAt(hour)
	if !ok {
		return fail(fmt.Errorf("%w: no price record", ErrMissingJoinKey))
	}
	res.Price = price.Price

	switch e.cfg.Mode {
	case ModeAvoidedMass:
		err = e.allocateMass(&res, marginalRate, others)
	default:
		err = e.allocateRate(&res, marginalRate, others)
	}
	if err != nil {
		return fail(err)
	}
	return res
}

// allocateRate fills the before/after marginal rate pair, curtailing the new
// generation when the price is below the threshold. A zero-emission margin
// keeps its zero rate pair while the excess is still charged at the blended
// rate, so the avoided mass matches allocateMass.
func (e *Engine) allocateRate(res *HourlyAllocationResult, marginalRate float64, others []fuelmix.Record) error {
	res.MarginalRateBefore = marginalRate
	res.MarginalRateAfter = marginalRate
	res.Displacement = DisplacementMarginal

	if res.Price < e.cfg.ThresholdPrice {
		res.Curtailed = true
		res.Displacement = DisplacementCurtailed
		return nil
	}
	if res.GenerationMWh > res.MarginalGenerationMWh {
		blended, err := e.weightedRate(others)
		if err != nil {
			return err
		}
		res.ExcessRate = blended
		if marginalRate != 0 {
			res.MarginalRateAfter = blended
			res.Displacement = DisplacementPartial
		}
	}
	res.AvoidedEmissionsLbs = res.ImpliedAvoidedLbs()
	return nil
}

// allocateMass computes avoided emissions mass. There is no curtailment branch.
func (e *Engine) allocateMass(res *HourlyAllocationResult, marginalRate float64, others []fuelmix.Record) error {
	res.MarginalRateBefore = marginalRate
	res.MarginalRateAfter = marginalRate
	res.Displacement = DisplacementMarginal

	if res.GenerationMWh > res.MarginalGenerationMWh {
		blended, err := e.weightedRate(others)
		if err != nil {
			return err
		}
		res.MarginalRateAfter = blended
		res.ExcessRate = blended
		res.Displacement = DisplacementPartial
	}
	res.AvoidedEmissionsLbs = res.ImpliedAvoidedLbs()
	return nil
}

// marginalRate returns the rate of the marginal record, or the generation
// weighted mean when more than one record is flagged.
func (e *Engine) marginalRate(records []fuelmix.Record) (float64, error) {
	if len(records) == 1 {
		rate, ok := e.cfg.Rates.Rate(records[0].Fuel)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFuelCategory, records[0].Fuel)
		}
		return rate, nil
	}
	return e.weightedRate(records)
}

// weightedRate returns the generation weighted mean emissions rate of records.
func (e *Engine) weightedRate(records []fuelmix.Record) (float64, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: no non-marginal records", ErrInsufficientFuelMixData)
	}
	rates := make([]float64, len(records))
	weights := make([]float64, len(records))
	for i, r := range records {
		rate, ok := e.cfg.Rates.Rate(r.Fuel)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFuelCategory, r.Fuel)
		}
		rates[i] = rate
		weights[i] = r.GenerationMWh
	}
	if floats.Sum(weights) == 0 {
		return 0, fmt.Errorf("%w: zero total generation", ErrInsufficientFuelMixData)
	}
	return stat.Mean(rates, weights), nil
}
