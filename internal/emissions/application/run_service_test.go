package application

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	emissions "windfarm-impact/internal/emissions/domain"
	"windfarm-impact/internal/emissions/infrastructure/memory"
	"windfarm-impact/internal/emissions/interfaces/export"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/observability/metrics"
	pricing "windfarm-impact/internal/pricing/domain"
	reporting "windfarm-impact/internal/reporting/domain"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedIDs string

func (f fixedIDs) NewRunID() string { return string(f) }

func key(hour int) hourkey.Key {
	return hourkey.Key{Month: time.January, Day: 1, Hour: hour}
}

func at(hour int) time.Time {
	return time.Date(2021, time.January, 1, hour, 0, 0, 0, time.UTC)
}

type countingSources struct {
	gridCalls  int
	priceCalls int
}

func (c *countingSources) sources() Sources {
	return Sources{
		Grid: SnapshotSourceFunc(func(ctx context.Context) ([]fuelmix.DispatchSnapshot, error) {
			c.gridCalls++
			return []fuelmix.DispatchSnapshot{
				{Timestamp: at(0), Fuel: fuelmix.FuelNaturalGas, GenerationMW: 100, Marginal: fuelmix.MarginalYes},
				{Timestamp: at(0), Fuel: fuelmix.FuelNuclear, GenerationMW: 200, Marginal: fuelmix.MarginalNo},
				{Timestamp: at(1), Fuel: fuelmix.FuelNaturalGas, GenerationMW: 100, Marginal: fuelmix.MarginalNo},
				{Timestamp: at(1), Fuel: fuelmix.FuelNuclear, GenerationMW: 200, Marginal: fuelmix.MarginalNo},
				{Timestamp: at(2), Fuel: fuelmix.FuelNaturalGas, GenerationMW: 100, Marginal: fuelmix.MarginalYes},
				{Timestamp: at(2), Fuel: fuelmix.FuelHydro, GenerationMW: math.NaN(), Marginal: fuelmix.MarginalNo},
			}, nil
		}),
		Prices: PriceSourceFunc(func(ctx context.Context) ([]pricing.Record, error) {
			c.priceCalls++
			return []pricing.Record{
				{Hour: key(0), LocationID: 4001, LocationName: ".Z.MAINE", Price: 30},
				{Hour: key(1), LocationID: 4001, LocationName: ".Z.MAINE", Price: 2},
			}, nil
		}),
		Generation: GenerationSourceFunc(func(ctx context.Context) (generation.Profile, error) {
			return generation.NewProfile([]generation.Record{
				{Hour: key(0), GenerationMWh: 50},
				{Hour: key(1), GenerationMWh: 40},
				{Hour: key(2), GenerationMWh: 30},
			})
		}),
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Cache.GridFile = filepath.Join(dir, "cache", "grid.csv")
	cfg.Cache.PriceFile = filepath.Join(dir, "cache", "lmp.csv")
	cfg.Output.Dir = filepath.Join(dir, "out")
	return cfg
}

func TestRunServiceRun(t *testing.T) {
	cfg := testConfig(t)
	src := &countingSources{}
	repo := memory.NewRunRepository()
	m := metrics.New()
	metricsFile := filepath.Join(t.TempDir(), "impact.prom")
	writer, err := export.NewDirWriter(cfg.Output.Dir, []string{"csv"})
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	logger, hook := logtest.NewNullLogger()

	svc, err := NewRunService(cfg, src.sources(),
		WithCache(cfg.Cache.GridFile, cfg.Cache.PriceFile, false),
		WithRepository(repo),
		WithReportWriter(writer),
		WithMetrics(m, metricsFile),
		WithLogger(logger),
		WithClock(fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}),
		WithRunIDFactory(fixedIDs("run-1")),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	out, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Run.ID != "run-1" || out.Run.Hours != 3 || out.Run.FailedHours != 1 {
		t.Fatalf("unexpected run header: %+v", out.Run)
	}
	results := out.Report.Results
	if results[0].Displacement != emissions.DisplacementMarginal {
		t.Fatalf("hour 0 displacement: %q", results[0].Displacement)
	}
	if want := 850.537 * 50; math.Abs(results[0].AvoidedEmissionsLbs-want) > 1e-6 {
		t.Fatalf("hour 0 avoided: got %v want %v", results[0].AvoidedEmissionsLbs, want)
	}
	if !results[1].Curtailed || results[1].MarginalFuel != fuelmix.FuelNaturalGas {
		t.Fatalf("hour 1 should be curtailed on fallback gas: %+v", results[1])
	}
	if !errors.Is(results[2].Err, emissions.ErrMissingJoinKey) {
		t.Fatalf("hour 2 error: %v", results[2].Err)
	}
	if out.Report.Summary.Failures[reporting.FailureMissingJoinKey] != 1 {
		t.Fatalf("failure kinds: %+v", out.Report.Summary.Failures)
	}

	if len(out.Files) != 2 {
		t.Fatalf("expected 2 csv files, got %v", out.Files)
	}
	for _, f := range out.Files {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("missing export %s: %v", f, err)
		}
	}
	saved, err := repo.ListResults(context.Background(), "run-1")
	if err != nil || len(saved) != 3 {
		t.Fatalf("persisted results: %v %d", err, len(saved))
	}
	if _, err := os.Stat(metricsFile); err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}

	var dropped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "fuel mix snapshots dropped" && e.Level == logrus.WarnLevel {
			dropped = true
		}
	}
	if !dropped {
		t.Fatalf("expected a dropped snapshot warning")
	}

	// Second run reads both caches instead of the sources.
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if src.gridCalls != 1 || src.priceCalls != 1 {
		t.Fatalf("expected cached second run, grid=%d price=%d", src.gridCalls, src.priceCalls)
	}
}

func TestRunServiceStrict(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.Strict = true
	src := &countingSources{}
	logger, _ := logtest.NewNullLogger()
	svc, err := NewRunService(cfg, src.sources(), WithLogger(logger), WithRunIDFactory(fixedIDs("strict")))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Run(context.Background()); !errors.Is(err, emissions.ErrMissingJoinKey) {
		t.Fatalf("expected strict failure, got %v", err)
	}
}

func TestRunServiceFetch(t *testing.T) {
	cfg := testConfig(t)
	src := &countingSources{}
	logger, _ := logtest.NewNullLogger()
	svc, err := NewRunService(cfg, src.sources(), WithLogger(logger))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	for i := 0; i < 2; i++ {
		out, err := svc.Fetch(context.Background())
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if out.GridRecords != 5 || out.DroppedSnapshots != 1 || out.PriceRecords != 2 {
			t.Fatalf("unexpected fetch outcome: %+v", out)
		}
	}
	if src.gridCalls != 2 {
		t.Fatalf("fetch should always refresh, got %d grid loads", src.gridCalls)
	}
	if _, err := os.Stat(cfg.Cache.GridFile); err != nil {
		t.Fatalf("grid cache: %v", err)
	}
}

func TestNewRunServiceValidates(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewRunService(cfg, Sources{}); err == nil {
		t.Fatalf("expected error for missing sources")
	}
	cfg.Engine.Mode = "bogus"
	if _, err := NewRunService(cfg, (&countingSources{}).sources()); !errors.Is(err, emissions.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
}

func TestRunServiceGenerationError(t *testing.T) {
	cfg := testConfig(t)
	src := (&countingSources{}).sources()
	src.Generation = GenerationSourceFunc(func(ctx context.Context) (generation.Profile, error) {
		return generation.Profile{}, generation.ErrPowerCurveUnavailable
	})
	logger, _ := logtest.NewNullLogger()
	svc, err := NewRunService(cfg, src, WithLogger(logger))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Run(context.Background()); !errors.Is(err, generation.ErrPowerCurveUnavailable) {
		t.Fatalf("expected power curve error, got %v", err)
	}
}
