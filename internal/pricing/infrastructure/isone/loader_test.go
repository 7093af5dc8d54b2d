package isone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/isone"
	pricing "windfarm-impact/internal/pricing/domain"
)

const lmpReport = `"C","Final Real-Time Hourly LMPs"
"H","Date","Hour Ending","Location ID","Location Name","Location Type","Locational Marginal Price","Energy Component","Congestion Component","Marginal Loss Component"
"H","","","","","","$/MWh","$/MWh","$/MWh","$/MWh"
"D","01/01/2021","02","4001",".Z.MAINE","LOAD ZONE","21.50","22.00","0","-0.50"
"D","01/01/2021","01","4001",".Z.MAINE","LOAD ZONE","19.25","20.00","0","-0.75"
"D","01/01/2021","01","4002",".Z.NEWHAMPSHIRE","LOAD ZONE","25.00","25.00","0","0"
"D","01/01/2021","02X","4001",".Z.MAINE","LOAD ZONE","18.00","18.00","0","0"
`

func TestParseReport(t *testing.T) {
	rep, err := isone.ReadReport(strings.NewReader(lmpReport))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records, skipped, err := ParseReport(rep, DefaultLocationID)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(skipped) != 1 || !errors.Is(skipped[0], hourkey.ErrAmbiguousHourEnding) {
		t.Fatalf("expected ambiguous hour ending skip, got %v", skipped)
	}
	first := records[0]
	if first.Hour != (hourkey.Key{Month: time.January, Day: 1, Hour: 1}) || first.Price != 21.5 || first.LocationName != ".Z.MAINE" {
		t.Fatalf("unexpected record %+v", first)
	}
}

func TestLoaderSortsByHour(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lmp_rt_final_20210101.csv"), []byte(lmpReport), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader, err := NewLoader(dir, DefaultLocationID, nil)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	records, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 || records[0].Hour.Hour != 0 || records[1].Hour.Hour != 1 {
		t.Fatalf("unexpected order %+v", records)
	}
	if _, err := NewLoader(dir, 0, nil); err == nil {
		t.Fatalf("expected error for invalid location id")
	}
}

func TestParseReportSkipsMissingPrices(t *testing.T) {
	report := lmpReport +
		`"D","01/01/2021","03","4001",".Z.MAINE","LOAD ZONE","","","",""
"D","01/01/2021","04","4001",".Z.MAINE","LOAD ZONE","n/a","","",""
"D","01/01/2021","05","4001",".Z.MAINE","LOAD ZONE","17.75","18.00","0","-0.25"
`
	rep, err := isone.ReadReport(strings.NewReader(report))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records, skipped, err := ParseReport(rep, DefaultLocationID)
	if err != nil {
		t.Fatalf("missing prices should not fail the report: %v", err)
	}
	if len(records) != 3 || records[2].Price != 17.75 {
		t.Fatalf("unexpected records %+v", records)
	}
	var invalid int
	for _, s := range skipped {
		if errors.Is(s, pricing.ErrInvalidPrice) {
			invalid++
		}
	}
	if invalid != 2 || len(skipped) != 3 {
		t.Fatalf("expected 2 invalid price skips, got %v", skipped)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lmp_rt_final_20210101.csv"), []byte(report), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	logger, hook := logtest.NewNullLogger()
	loader, err := NewLoader(dir, DefaultLocationID, logger)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "lmp row skipped" {
			warnings++
		}
	}
	if warnings != 3 {
		t.Fatalf("expected 3 skip warnings, got %d", warnings)
	}
}
