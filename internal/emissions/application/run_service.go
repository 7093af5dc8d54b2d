package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	fuelcsv "windfarm-impact/internal/fuelmix/infrastructure/csvfile"
	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/observability/metrics"
	pricing "windfarm-impact/internal/pricing/domain"
	pricecsv "windfarm-impact/internal/pricing/infrastructure/csvfile"
	reporting "windfarm-impact/internal/reporting/domain"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RunIDFactory creates run identifiers.
type RunIDFactory interface {
	NewRunID() string
}

type uuidFactory struct{}

func (uuidFactory) NewRunID() string { return uuid.NewString() }

// ReportWriter persists a finished report and returns what it wrote.
type ReportWriter interface {
	Write(ctx context.Context, rep reporting.Report) ([]string, error)
}

// RunOutcome is the result of one Run.
type RunOutcome struct {
	Run    emissions.Run
	Report reporting.Report
	Files  []string
}

// FetchOutcome describes the caches written by Fetch.
type FetchOutcome struct {
	GridFile         string
	GridRecords      int
	DroppedSnapshots int
	PriceFile        string
	PriceRecords     int
}

// RunService executes the load, allocate, report pipeline.
type RunService struct {
	engine      *emissions.Engine
	sources     Sources
	fallback    fuelmix.FuelCategory
	site        string
	nameplate   float64
	gridCache   string
	priceCache  string
	refresh     bool
	repo        emissions.RunRepository
	writer      ReportWriter
	metrics     *metrics.Metrics
	metricsFile string
	logger      logrus.FieldLogger
	clock       Clock
	ids         RunIDFactory
}

// RunOption configures a RunService.
type RunOption func(*RunService)

// WithRepository persists each run.
func WithRepository(repo emissions.RunRepository) RunOption {
	return func(s *RunService) {
		s.repo = repo
	}
}

// WithReportWriter exports each run.
func WithReportWriter(w ReportWriter) RunOption {
	return func(s *RunService) {
		s.writer = w
	}
}

// WithMetrics records run metrics, writing them to path when it is not empty.
func WithMetrics(m *metrics.Metrics, path string) RunOption {
	return func(s *RunService) {
		s.metrics = m
		s.metricsFile = path
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) RunOption {
	return func(s *RunService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) RunOption {
	return func(s *RunService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRunIDFactory overrides run id generation.
func WithRunIDFactory(ids RunIDFactory) RunOption {
	return func(s *RunService) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithCache reads and writes normalized tables at the given paths. Refresh
// ignores existing files.
func WithCache(gridFile, priceFile string, refresh bool) RunOption {
	return func(s *RunService) {
		s.gridCache = gridFile
		s.priceCache = priceFile
		s.refresh = refresh
	}
}

// NewRunService constructs the service from a validated config.
func NewRunService(cfg Config, sources Sources, opts ...RunOption) (*RunService, error) {
	if sources.Grid == nil {
		return nil, errors.New("run service: nil grid source")
	}
	if sources.Prices == nil {
		return nil, errors.New("run service: nil price source")
	}
	if sources.Generation == nil {
		return nil, errors.New("run service: nil generation source")
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	engine, err := emissions.NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}

	s := &RunService{
		engine:     engine,
		sources:    sources,
		fallback:   cfg.FallbackFuel(),
		site:       cfg.Site.Name,
		nameplate:  cfg.Site.NameplateMW,
		gridCache:  cfg.Cache.GridFile,
		priceCache: cfg.Cache.PriceFile,
		refresh:    cfg.Cache.Refresh,
		logger:     logrus.StandardLogger(),
		clock:      SystemClock{},
		ids:        uuidFactory{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run loads inputs, allocates every hour and builds the report. In strict mode
// the first failed hour aborts the run.
func (s *RunService) Run(ctx context.Context) (*RunOutcome, error) {
	started := s.clock.Now().UTC()
	runID := s.ids.NewRunID()
	logger := s.logger.WithField("run_id", runID)
	logger.WithFields(logrus.Fields{"site": s.site, "mode": s.engine.Config().Mode}).Info("run started")

	outcome, err := s.run(ctx, runID, started, logger)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		logger.WithError(err).Error("run failed")
	}
	s.metrics.ObserveRun(result, s.clock.Now().Sub(started))
	if s.metrics != nil && s.metricsFile != "" {
		if werr := s.metrics.WriteTextfile(s.metricsFile); werr != nil {
			logger.WithError(werr).Warn("metrics textfile not written")
		}
	}
	return outcome, err
}

func (s *RunService) run(ctx context.Context, runID string, started time.Time, logger logrus.FieldLogger) (*RunOutcome, error) {
	var (
		table  fuelmix.Table
		series pricing.Series
		inputs emissions.Inputs
		err    error
	)

	if err := s.stage("load_grid", func() error {
		table, _, err = s.loadGrid(ctx, s.refresh, logger)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.stage("load_prices", func() error {
		series, err = s.loadPrices(ctx, s.refresh, logger)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.stage("load_generation", func() error {
		inputs.Generation, err = s.sources.Generation.Load(ctx)
		return err
	}); err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}
	inputs.Prices = series
	s.checkCoverage(logger, table, series, inputs.Generation)

	if err := s.stage("resolve", func() error {
		inputs.FuelMix, err = fuelmix.ResolveMarginalFlags(table, s.fallback)
		return err
	}); err != nil {
		return nil, err
	}
	fallbackHours := inputs.FuelMix.FallbackCount()
	s.metrics.SetFallbackHours(fallbackHours)
	logger.WithFields(logrus.Fields{
		"fallback_fuel":  s.fallback,
		"fallback_hours": fallbackHours,
		"unresolved":     len(inputs.FuelMix.Failures),
	}).Info("marginal units resolved")
	if cleared := inputs.FuelMix.ClearedCount(); cleared > 0 {
		logger.WithField("hours", cleared).Warn("extra marginal flags cleared")
	}

	var alloc emissions.Allocation
	if err := s.stage("allocate", func() error {
		alloc, err = s.engine.Allocate(inputs)
		return err
	}); err != nil {
		return nil, err
	}
	for _, r := range alloc.Failures() {
		logger.WithFields(logrus.Fields{"hour": r.Hour.String(), "reason": r.Err}).Debug("hour not allocated")
	}

	rep := reporting.BuildReport(alloc, reporting.Options{NameplateMW: s.nameplate})
	rep.RunID = runID
	rep.Site = s.site
	rep.Generated = s.clock.Now().UTC()
	s.recordSummary(rep.Summary)
	logger.WithFields(logrus.Fields{
		"hours":           rep.Summary.Hours,
		"failed_hours":    rep.Summary.FailedHours,
		"curtailed_hours": rep.Summary.CurtailedHours,
		"avoided_tonnes":  rep.Summary.AvoidedEmissionsTonnes,
		"rate_change_pct": rep.Summary.RateChangePct,
	}).Info("allocation summarized")

	outcome := &RunOutcome{
		Run: emissions.Run{
			ID:                  runID,
			Site:                s.site,
			Mode:                alloc.Mode,
			ThresholdPrice:      s.engine.Config().ThresholdPrice,
			StartedAt:           started,
			Hours:               rep.Summary.Hours,
			FailedHours:         rep.Summary.FailedHours,
			AvoidedEmissionsLbs: rep.Summary.AvoidedEmissionsLbs,
		},
		Report: rep,
	}

	if s.writer != nil {
		if err := s.stage("export", func() error {
			outcome.Files, err = s.writer.Write(ctx, rep)
			return err
		}); err != nil {
			return outcome, err
		}
		logger.WithField("files", len(outcome.Files)).Info("report exported")
	}

	outcome.Run.FinishedAt = s.clock.Now().UTC()
	if s.repo != nil {
		if err := s.stage("persist", func() error {
			return s.repo.SaveRun(ctx, outcome.Run, alloc.Results)
		}); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// Fetch rebuilds the normalized grid and price caches from the raw sources.
func (s *RunService) Fetch(ctx context.Context) (*FetchOutcome, error) {
	if s.gridCache == "" || s.priceCache == "" {
		return nil, errors.New("run service: fetch needs grid and price cache paths")
	}
	logger := s.logger.WithField("command", "fetch")
	table, dropped, err := s.loadGrid(ctx, true, logger)
	if err != nil {
		return nil, err
	}
	series, err := s.loadPrices(ctx, true, logger)
	if err != nil {
		return nil, err
	}
	return &FetchOutcome{
		GridFile:         s.gridCache,
		GridRecords:      table.Len(),
		DroppedSnapshots: dropped,
		PriceFile:        s.priceCache,
		PriceRecords:     series.Len(),
	}, nil
}

func (s *RunService) loadGrid(ctx context.Context, refresh bool, logger logrus.FieldLogger) (fuelmix.Table, int, error) {
	if !refresh && cacheExists(s.gridCache) {
		table, err := fuelcsv.Read(s.gridCache)
		if err != nil {
			return fuelmix.Table{}, 0, err
		}
		logger.WithFields(logrus.Fields{"file": s.gridCache, "records": table.Len()}).Info("grid table read from cache")
		return table, 0, nil
	}

	snapshots, err := s.sources.Grid.Load(ctx)
	if err != nil {
		return fuelmix.Table{}, 0, fmt.Errorf("grid: %w", err)
	}
	agg, err := fuelmix.Aggregate(snapshots)
	if err != nil {
		return fuelmix.Table{}, 0, err
	}
	for _, d := range agg.Dropped {
		logger.WithFields(logrus.Fields{
			"index":  d.Index,
			"fuel":   d.Snapshot.Fuel,
			"time":   d.Snapshot.Timestamp.Format(time.RFC3339),
			"reason": d.Reason,
		}).Debug("snapshot dropped")
	}
	if len(agg.Dropped) > 0 {
		logger.WithField("dropped", len(agg.Dropped)).Warn("fuel mix snapshots dropped")
	}
	s.metrics.AddDroppedSnapshots(len(agg.Dropped))

	if s.gridCache != "" {
		if err := fuelcsv.Write(s.gridCache, agg.Table); err != nil {
			return fuelmix.Table{}, 0, err
		}
		logger.WithFields(logrus.Fields{"file": s.gridCache, "records": agg.Table.Len()}).Info("grid cache written")
	}
	return agg.Table, len(agg.Dropped), nil
}

func (s *RunService) loadPrices(ctx context.Context, refresh bool, logger logrus.FieldLogger) (pricing.Series, error) {
	var records []pricing.Record
	var err error
	if !refresh && cacheExists(s.priceCache) {
		records, err = pricecsv.Read(s.priceCache)
		if err != nil {
			return pricing.Series{}, err
		}
		logger.WithFields(logrus.Fields{"file": s.priceCache, "records": len(records)}).Info("prices read from cache")
		return pricing.NewSeries(records)
	}

	records, err = s.sources.Prices.Load(ctx)
	if err != nil {
		return pricing.Series{}, fmt.Errorf("prices: %w", err)
	}
	series, err := pricing.NewSeries(records)
	if err != nil {
		return pricing.Series{}, err
	}
	if s.priceCache != "" {
		if err := pricecsv.Write(s.priceCache, records); err != nil {
			return pricing.Series{}, err
		}
		logger.WithFields(logrus.Fields{"file": s.priceCache, "records": len(records)}).Info("price cache written")
	}
	return series, nil
}

// checkCoverage warns about tables that do not hold every hour of the year
// exactly once. Allocation still runs; the gaps surface as failed hours.
func (s *RunService) checkCoverage(logger logrus.FieldLogger, table fuelmix.Table, series pricing.Series, profile generation.Profile) {
	checks := []struct {
		name string
		keys []hourkey.Key
	}{
		{"grid", table.Hours()},
		{"prices", series.Keys()},
		{"generation", profile.Keys()},
	}
	for _, c := range checks {
		if err := hourkey.CheckCoverage(c.keys).Err(); err != nil {
			logger.WithField("table", c.name).WithError(err).Warn("incomplete year")
		}
	}
}

func (s *RunService) recordSummary(sum reporting.Summary) {
	dispatched := sum.Hours - sum.FailedHours - sum.CurtailedHours
	s.metrics.AddHours(dispatched, sum.CurtailedHours, sum.FailedHours)
	s.metrics.AddHourFailures(sum.Failures)
	s.metrics.SetImpact(sum.AvoidedEmissionsTonnes, sum.RateChangePct, sum.CurtailedSharePct)
}

func (s *RunService) stage(name string, fn func() error) error {
	start := s.clock.Now()
	err := fn()
	s.metrics.ObserveStage(name, s.clock.Now().Sub(start))
	return err
}

func cacheExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
