package reporting

import (
	"sort"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
)

// MarginalShare is how often one fuel sets the margin.
type MarginalShare struct {
	Fuel fuelmix.FuelCategory
	// Hours is the number of hours the fuel was marginal.
	Hours int
	// TimeWeighted is Hours over all resolved hours.
	TimeWeighted float64
	// LoadWeighted is the grid generation of those hours over total grid generation.
	LoadWeighted float64
}

// MarginalFrequency counts how often each fuel is on the margin, both time
// weighted and weighted by the grid load of the hour. Hours with no marginal
// record are ignored. Shares are sorted by descending hour count.
func MarginalFrequency(grid []emissions.GridEmissionsRow) []MarginalShare {
	type hourAcc struct {
		fuel   fuelmix.FuelCategory
		load   float64
		marked bool
	}
	hours := make(map[hourkey.Key]*hourAcc)
	var order []hourkey.Key
	for _, row := range grid {
		acc, ok := hours[row.Hour]
		if !ok {
			acc = &hourAcc{}
			hours[row.Hour] = acc
			order = append(order, row.Hour)
		}
		acc.load += row.GenerationMWh
		if row.Marginal && !acc.marked {
			acc.fuel = row.Fuel
			acc.marked = true
		}
	}

	byFuel := make(map[fuelmix.FuelCategory]*MarginalShare)
	var resolved int
	var totalLoad float64
	for _, key := range order {
		acc := hours[key]
		if !acc.marked {
			continue
		}
		resolved++
		totalLoad += acc.load
		share, ok := byFuel[acc.fuel]
		if !ok {
			share = &MarginalShare{Fuel: acc.fuel}
			byFuel[acc.fuel] = share
		}
		share.Hours++
		share.LoadWeighted += acc.load
	}

	out := make([]MarginalShare, 0, len(byFuel))
	for _, share := range byFuel {
		share.TimeWeighted = ratio(float64(share.Hours), float64(resolved))
		share.LoadWeighted = ratio(share.LoadWeighted, totalLoad)
		out = append(out, *share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		return out[i].Fuel < out[j].Fuel
	})
	return out
}
