package export

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
	reporting "windfarm-impact/internal/reporting/domain"
)

func sampleReport() reporting.Report {
	h0 := hourkey.Key{Month: time.January, Day: 1, Hour: 0}
	h1 := hourkey.Key{Month: time.January, Day: 1, Hour: 1}
	results := []emissions.HourlyAllocationResult{
		{
			Hour: h0, GenerationMWh: 120, Price: 10, MarginalFuel: fuelmix.FuelNaturalGas,
			MarginalGenerationMWh: 100, MarginalRateBefore: 850.537, MarginalRateAfter: 455.404,
			Displacement: emissions.DisplacementPartial, AvoidedEmissionsLbs: 94161.78,
		},
		{Hour: h1, Err: hourkey.Wrap(h1, emissions.ErrMissingJoinKey)},
	}
	grid := []emissions.GridEmissionsRow{
		{Hour: h0, Fuel: fuelmix.FuelNaturalGas, GenerationMWh: 100, Marginal: true, EmissionsRate: 850.537, EmissionsLbs: 85053.7},
		{Hour: h0, Fuel: "Tidal", GenerationMWh: 1, EmissionsRate: math.NaN(), EmissionsLbs: math.NaN()},
	}
	rep := reporting.BuildReport(emissions.Allocation{
		Mode:    emissions.ModeMarginalRate,
		Results: results,
		Grid:    grid,
	}, reporting.Options{NameplateMW: 1000})
	rep.RunID = "run-1"
	rep.Site = "King Pine"
	rep.Generated = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rep
}

func TestWriteResultsCSV(t *testing.T) {
	rep := sampleReport()
	var buf bytes.Buffer
	if err := WriteResultsCSV(&buf, rep.Results); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "01-01 00:00,120,10,Natural Gas,100,850.537,455.404,false,partial,94161.78,") {
		t.Fatalf("unexpected result row %q", lines[1])
	}
	if !strings.Contains(lines[2], "missing join key") {
		t.Fatalf("expected error text in failed row, got %q", lines[2])
	}
}

func TestWriteGridCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGridCSV(&buf, sampleReport().Grid); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "01-01 00:00,Natural Gas,100,Yes,850.537,85053.7") {
		t.Fatalf("unexpected grid csv %q", out)
	}
	if !strings.Contains(out, "Tidal,1,No,NaN,NaN") {
		t.Fatalf("expected NaN for unknown fuel, got %q", out)
	}
}

func TestBuildReportXLSX(t *testing.T) {
	data, err := BuildReportXLSX(sampleReport())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if v, _ := f.GetCellValue("summary", "B2"); v != "run-1" {
		t.Fatalf("unexpected run id cell %q", v)
	}
	if v, _ := f.GetCellValue("hourly", "D2"); v != "Natural Gas" {
		t.Fatalf("unexpected marginal fuel cell %q", v)
	}
	if v, _ := f.GetCellValue("hourly", "K3"); !strings.Contains(v, "missing join key") {
		t.Fatalf("unexpected error cell %q", v)
	}
	if v, _ := f.GetCellValue("marginal", "A2"); v != "Natural Gas" {
		t.Fatalf("unexpected marginal sheet %q", v)
	}
}

func TestBuildSummaryPDF(t *testing.T) {
	data, err := BuildSummaryPDF(sampleReport())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf output")
	}
}

func TestDirWriter(t *testing.T) {
	root := t.TempDir()
	w, err := NewDirWriter(root, []string{"csv", "xlsx", "pdf", "png"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	paths, err := w.Write(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	want := map[string]bool{
		ResultsCSVFile: true, GridCSVFile: true, ReportXLSXFile: true, SummaryPDFFile: true,
		RateChangePNGFile: true, DurationPNGFile: true, WeeklyPNGFile: true,
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), paths)
	}
	for _, p := range paths {
		if filepath.Dir(p) != filepath.Join(root, "run-1") || !want[filepath.Base(p)] {
			t.Fatalf("unexpected path %s", p)
		}
		if info, err := os.Stat(p); err != nil || info.Size() == 0 {
			t.Fatalf("empty or missing %s: %v", p, err)
		}
	}

	if _, err := NewDirWriter(root, []string{"docx"}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected unknown format, got %v", err)
	}
}
