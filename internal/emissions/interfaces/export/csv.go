package export

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	emissions "windfarm-impact/internal/emissions/domain"
)

var resultHeader = []string{
	"Date",
	"Generation (MWh)",
	"Price ($/MWh)",
	"Marginal Fuel",
	"Marginal Generation (MWh)",
	"Marginal Emissions Rate (lbs CO2/MWh) - Before",
	"Marginal Emissions Rate (lbs CO2/MWh) - After",
	"Curtailed",
	"Displacement",
	"Avoided Emissions (lbs CO2)",
	"Error",
}

var gridHeader = []string{
	"Date",
	"Fuel Category",
	"Generation (MWh)",
	"Marginal Flag",
	"Emissions Rate (lbs CO2/MWh)",
	"Emissions (lbs CO2)",
}

// WriteResultsCSV writes one row per hour. Failed hours keep their key and
// error text with the numeric columns left blank.
func WriteResultsCSV(w io.Writer, results []emissions.HourlyAllocationResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{r.Hour.String(), "", "", "", "", "", "", "", "", "", ""}
		if r.Failed() {
			row[10] = r.Err.Error()
		} else {
			row[1] = formatFloat(r.GenerationMWh)
			row[2] = formatFloat(r.Price)
			row[3] = string(r.MarginalFuel)
			row[4] = formatFloat(r.MarginalGenerationMWh)
			row[5] = formatFloat(r.MarginalRateBefore)
			row[6] = formatFloat(r.MarginalRateAfter)
			row[7] = strconv.FormatBool(r.Curtailed)
			row[8] = string(r.Displacement)
			row[9] = formatFloat(r.AvoidedEmissionsLbs)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteGridCSV writes the grid emissions table.
func WriteGridCSV(w io.Writer, grid []emissions.GridEmissionsRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(gridHeader); err != nil {
		return err
	}
	for _, row := range grid {
		flag := "No"
		if row.Marginal {
			flag = "Yes"
		}
		if err := writer.Write([]string{
			row.Hour.String(),
			string(row.Fuel),
			formatFloat(row.GenerationMWh),
			flag,
			formatFloat(row.EmissionsRate),
			formatFloat(row.EmissionsLbs),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
