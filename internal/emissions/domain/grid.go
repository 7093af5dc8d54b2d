package emissions

import (
	"math"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
)

// GridEmissions multiplies every fuel record by its emissions rate.
func (e *Engine) GridEmissions(t fuelmix.Table) []GridEmissionsRow {
	records := t.Records()
	rows := make([]GridEmissionsRow, 0, len(records))
	for _, r := range records {
		rate, ok := e.cfg.Rates.Rate(r.Fuel)
		if !ok {
			rate = math.NaN()
		}
		rows = append(rows, GridEmissionsRow{
			Hour:          r.Hour,
			Fuel:          r.Fuel,
			GenerationMWh: r.GenerationMWh,
			Marginal:      r.Marginal,
			EmissionsRate: rate,
			EmissionsLbs:  rate * r.GenerationMWh,
		})
	}
	return rows
}
