package export

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	reporting "windfarm-impact/internal/reporting/domain"
)

// BuildReportXLSX renders the run summary, hourly results, marginal fuel
// frequency and weekly totals as a workbook.
func BuildReportXLSX(rep reporting.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "summary"
	hourlySheet := "hourly"
	marginalSheet := "marginal"
	weeklySheet := "weekly"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{hourlySheet, marginalSheet, weeklySheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	s := rep.Summary
	rows := [][2]any{
		{"Emissions Impact Report", ""},
		{"Run", rep.RunID},
		{"Site", rep.Site},
		{"Mode", string(rep.Mode)},
		{"Generated", rep.Generated.Format(time.RFC3339)},
		{"Hours", s.Hours},
		{"Failed Hours", s.FailedHours},
		{"Grid Generation (MWh)", cell(s.GridGenerationMWh)},
		{"Grid Average Rate (lbs CO2/MWh)", cell(s.GridAverageRate)},
		{"New Generation (MWh)", cell(s.NewGenerationMWh)},
		{"Dispatched Generation (MWh)", cell(s.DispatchedGenerationMWh)},
		{"Capacity Factor", cell(s.CapacityFactor)},
		{"Mean Marginal Rate Before", cell(s.MeanRateBefore)},
		{"Mean Marginal Rate After", cell(s.MeanRateAfter)},
		{"Change in Marginal Rate (%)", cell(s.RateChangePct)},
		{"Curtailed Hours", s.CurtailedHours},
		{"Curtailed Generation (MWh)", cell(s.CurtailedGenerationMWh)},
		{"Curtailed Generation (%)", cell(s.CurtailedSharePct)},
		{"Avoided Emissions (lbs CO2)", cell(s.AvoidedEmissionsLbs)},
		{"Avoided Emissions (t CO2)", cell(s.AvoidedEmissionsTonnes)},
		{"Avoided Emissions Rate (lbs CO2/MWh)", cell(s.AvoidedRate)},
	}
	for i, row := range rows {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	for i, name := range resultHeader {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetCellValue(hourlySheet, col+"1", name)
	}
	for i, r := range rep.Results {
		row := i + 2
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("A%d", row), r.Hour.String())
		if r.Failed() {
			_ = f.SetCellValue(hourlySheet, fmt.Sprintf("K%d", row), r.Err.Error())
			continue
		}
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("B%d", row), r.GenerationMWh)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("C%d", row), r.Price)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("D%d", row), string(r.MarginalFuel))
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("E%d", row), r.MarginalGenerationMWh)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("F%d", row), r.MarginalRateBefore)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("G%d", row), r.MarginalRateAfter)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("H%d", row), r.Curtailed)
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("I%d", row), string(r.Displacement))
		_ = f.SetCellValue(hourlySheet, fmt.Sprintf("J%d", row), r.AvoidedEmissionsLbs)
	}

	_ = f.SetCellValue(marginalSheet, "A1", "Fuel Category")
	_ = f.SetCellValue(marginalSheet, "B1", "Hours")
	_ = f.SetCellValue(marginalSheet, "C1", "Time Weighted")
	_ = f.SetCellValue(marginalSheet, "D1", "Load Weighted")
	for i, share := range rep.Frequency {
		row := i + 2
		_ = f.SetCellValue(marginalSheet, fmt.Sprintf("A%d", row), string(share.Fuel))
		_ = f.SetCellValue(marginalSheet, fmt.Sprintf("B%d", row), share.Hours)
		_ = f.SetCellValue(marginalSheet, fmt.Sprintf("C%d", row), cell(share.TimeWeighted))
		_ = f.SetCellValue(marginalSheet, fmt.Sprintf("D%d", row), cell(share.LoadWeighted))
	}

	_ = f.SetCellValue(weeklySheet, "A1", "Week")
	_ = f.SetCellValue(weeklySheet, "B1", "Grid Generation (MWh)")
	_ = f.SetCellValue(weeklySheet, "C1", "New Generation (MWh)")
	_ = f.SetCellValue(weeklySheet, "D1", "Net Generation (MWh)")
	for i, week := range rep.Weekly {
		row := i + 2
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("A%d", row), week.Week)
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("B%d", row), week.GridGenerationMWh)
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("C%d", row), week.NewGenerationMWh)
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("D%d", row), week.NetGenerationMWh)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// cell keeps NaN out of numeric cells.
func cell(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return v
}
