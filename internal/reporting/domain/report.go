package reporting

import (
	"time"

	emissions "windfarm-impact/internal/emissions/domain"
)

// Report is the complete output of one run, ready for export.
type Report struct {
	RunID     string
	Site      string
	Generated time.Time
	Mode      emissions.Mode
	Summary   Summary
	Results   []emissions.HourlyAllocationResult
	Grid      []emissions.GridEmissionsRow
	Frequency []MarginalShare
	Weekly    []WeekTotal
	Duration  []DurationPoint
	Changes   []RateChange
}

// BuildReport runs every reducer over one allocation.
func BuildReport(alloc emissions.Allocation, opts Options) Report {
	return Report{
		Mode:      alloc.Mode,
		Summary:   Summarize(alloc.Results, alloc.Grid, opts),
		Results:   alloc.Results,
		Grid:      alloc.Grid,
		Frequency: MarginalFrequency(alloc.Grid),
		Weekly:    WeeklyTotals(alloc.Results, alloc.Grid),
		Duration:  DurationCurve(alloc.Results),
		Changes:   RateChanges(alloc.Results),
	}
}
