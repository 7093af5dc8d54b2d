package export

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/jung-kurt/gofpdf"

	reporting "windfarm-impact/internal/reporting/domain"
)

// BuildSummaryPDF renders the headline statistics and marginal fuel frequency.
func BuildSummaryPDF(rep reporting.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Emissions Impact Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Site: %s", rep.Site))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", rep.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Mode: %s", rep.Mode))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", rep.Generated.Format(time.RFC3339)))
	pdf.Ln(8)

	s := rep.Summary
	lines := []string{
		fmt.Sprintf("Annual grid generation (MWh): %s", num(s.GridGenerationMWh, 1)),
		fmt.Sprintf("Annual new generation (MWh): %s", num(s.NewGenerationMWh, 1)),
		fmt.Sprintf("Capacity factor: %s", num(s.CapacityFactor, 3)),
		fmt.Sprintf("Change in marginal CO2 emissions rate (%%): %s", num(s.RateChangePct, 2)),
		fmt.Sprintf("Curtailed hours: %d", s.CurtailedHours),
		fmt.Sprintf("Curtailed generation (MWh): %s", num(s.CurtailedGenerationMWh, 1)),
		fmt.Sprintf("Curtailed generation (%%): %s", num(s.CurtailedSharePct, 2)),
		fmt.Sprintf("Avoided emissions (t CO2): %s", num(s.AvoidedEmissionsTonnes, 1)),
		fmt.Sprintf("Failed hours: %d", s.FailedHours),
	}
	for _, line := range lines {
		pdf.Cell(0, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Marginal Fuel", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Hours", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Time Weighted", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Load Weighted", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, share := range rep.Frequency {
		pdf.CellFormat(50, 6, string(share.Fuel), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", share.Hours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, num(share.TimeWeighted*100, 1)+"%", "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, num(share.LoadWeighted*100, 1)+"%", "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	return fmt.Sprintf("%.*f", prec, v)
}
