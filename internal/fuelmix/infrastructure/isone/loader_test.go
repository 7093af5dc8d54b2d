package isone

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/isone"
)

const dayReport = `"C","Generation Fuel Mix Report"
"H","Date","Time","Fuel Category","Gen Mw","Marginal Flag"
"H","","","","",""
"D","01/01/2021","00:01:04","Natural Gas","3400","Y"
"D","01/01/2021","00:01:04","Coal","","N"
"D","01/01/2021","00:31:04","Natural Gas","3600","N"
`

func TestParseReport(t *testing.T) {
	rep, err := isone.ReadReport(strings.NewReader(dayReport))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	snapshots, err := ParseReport(rep)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}
	first := snapshots[0]
	if !first.Timestamp.Equal(time.Date(2021, 1, 1, 0, 1, 4, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", first.Timestamp)
	}
	if first.Fuel != fuelmix.FuelNaturalGas || first.Marginal != fuelmix.MarginalYes || first.GenerationMW != 3400 {
		t.Fatalf("unexpected snapshot %+v", first)
	}
	if !math.IsNaN(snapshots[1].GenerationMW) {
		t.Fatalf("blank generation should be NaN, got %v", snapshots[1].GenerationMW)
	}

	agg, err := fuelmix.Aggregate(snapshots)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Table.Len() != 1 || len(agg.Dropped) != 1 {
		t.Fatalf("expected one gas record and one drop, got %d/%d", agg.Table.Len(), len(agg.Dropped))
	}
	if r := agg.Table.Records()[0]; r.GenerationMWh != 3500 || !r.Marginal {
		t.Fatalf("unexpected aggregate %+v", r)
	}
}

func TestParseReportRejectsBadTimestamp(t *testing.T) {
	bad := strings.Replace(dayReport, "00:31:04", "xx", 1)
	rep, err := isone.ReadReport(strings.NewReader(bad))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := ParseReport(rep); !errors.Is(err, hourkey.ErrInvalidTimestamp) {
		t.Fatalf("expected invalid timestamp, got %v", err)
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "genfuelmix_20210101.csv"), []byte(dayReport), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader, err := NewLoader(dir, nil)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	snapshots, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snapshots))
	}

	empty, _ := NewLoader(t.TempDir(), nil)
	if _, err := empty.Load(context.Background()); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}
