package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
)

const (
	defaultRunsTable    = "impact_runs"
	defaultResultsTable = "impact_hourly_results"

	insertBatchSize = 500
)

var resultColumns = []string{
	"run_id",
	"hour_key",
	"hour_ordinal",
	"generation_mwh",
	"price",
	"marginal_fuel",
	"marginal_generation_mwh",
	"rate_before",
	"rate_after",
	"curtailed",
	"displacement",
	"avoided_lbs",
	"error",
}

// RunRepository persists runs and hourly results in Postgres.
type RunRepository struct {
	db           *sql.DB
	runsTable    string
	resultsTable string
	psql         sq.StatementBuilderType
}

// RepositoryOption configures the repository.
type RepositoryOption func(*RunRepository)

// WithTables overrides the default table names.
func WithTables(runs, results string) RepositoryOption {
	return func(r *RunRepository) {
		if runs != "" {
			r.runsTable = runs
		}
		if results != "" {
			r.resultsTable = results
		}
	}
}

// NewRunRepository constructs a repository.
func NewRunRepository(db *sql.DB, opts ...RepositoryOption) (*RunRepository, error) {
	if db == nil {
		return nil, errors.New("run repo: nil db")
	}
	r := &RunRepository{
		db:           db,
		runsTable:    defaultRunsTable,
		resultsTable: defaultResultsTable,
		psql:         sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// EnsureSchema creates the tables when they do not exist.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	site TEXT NOT NULL,
	mode TEXT NOT NULL,
	threshold_price DOUBLE PRECISION NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	hours INTEGER NOT NULL,
	failed_hours INTEGER NOT NULL,
	avoided_emissions_lbs DOUBLE PRECISION NOT NULL
)`, r.runsTable))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	run_id TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
	hour_key TEXT NOT NULL,
	hour_ordinal INTEGER NOT NULL,
	generation_mwh DOUBLE PRECISION NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	marginal_fuel TEXT NOT NULL,
	marginal_generation_mwh DOUBLE PRECISION NOT NULL,
	rate_before DOUBLE PRECISION NOT NULL,
	rate_after DOUBLE PRECISION NOT NULL,
	curtailed BOOLEAN NOT NULL,
	displacement TEXT NOT NULL,
	avoided_lbs DOUBLE PRECISION NOT NULL,
	error TEXT NOT NULL,
	PRIMARY KEY (run_id, hour_key)
)`, r.resultsTable, r.runsTable))
	return err
}

// SaveRun upserts the run header and replaces its hourly results in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run emissions.Run, results []emissions.HourlyAllocationResult) error {
	if run.ID == "" {
		return errors.New("run repo: empty run id")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	upsert, args, err := r.psql.Insert(r.runsTable).
		Columns("id", "site", "mode", "threshold_price", "started_at", "finished_at", "hours", "failed_hours", "avoided_emissions_lbs").
		Values(run.ID, run.Site, string(run.Mode), run.ThresholdPrice, run.StartedAt, run.FinishedAt, run.Hours, run.FailedHours, run.AvoidedEmissionsLbs).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
	site = EXCLUDED.site,
	mode = EXCLUDED.mode,
	threshold_price = EXCLUDED.threshold_price,
	started_at = EXCLUDED.started_at,
	finished_at = EXCLUDED.finished_at,
	hours = EXCLUDED.hours,
	failed_hours = EXCLUDED.failed_hours,
	avoided_emissions_lbs = EXCLUDED.avoided_emissions_lbs`).
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, upsert, args...); err != nil {
		_ = tx.Rollback()
		return err
	}

	del, args, err := r.psql.Delete(r.resultsTable).Where(sq.Eq{"run_id": run.ID}).ToSql()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, del, args...); err != nil {
		_ = tx.Rollback()
		return err
	}

	for start := 0; start < len(results); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(results) {
			end = len(results)
		}
		insert := r.psql.Insert(r.resultsTable).Columns(resultColumns...)
		for _, res := range results[start:end] {
			insert = insert.Values(resultValues(run.ID, res)...)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// FindRun fetches a run header.
func (r *RunRepository) FindRun(ctx context.Context, id string) (*emissions.Run, error) {
	query, args, err := r.psql.
		Select("id", "site", "mode", "threshold_price", "started_at", "finished_at", "hours", "failed_hours", "avoided_emissions_lbs").
		From(r.runsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	var run emissions.Run
	var mode string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&run.ID, &run.Site, &mode, &run.ThresholdPrice, &run.StartedAt, &run.FinishedAt,
		&run.Hours, &run.FailedHours, &run.AvoidedEmissionsLbs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, emissions.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	run.Mode = emissions.Mode(mode)
	return &run, nil
}

// ListResults returns a run's hourly results in hour order. Stored failures
// come back as plain errors carrying the original message.
func (r *RunRepository) ListResults(ctx context.Context, runID string) ([]emissions.HourlyAllocationResult, error) {
	if _, err := r.FindRun(ctx, runID); err != nil {
		return nil, err
	}
	query, args, err := r.psql.Select(resultColumns[1:]...).
		From(r.resultsTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("hour_ordinal ASC", "hour_key ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []emissions.HourlyAllocationResult
	for rows.Next() {
		var (
			res                  emissions.HourlyAllocationResult
			key, fuel, disp, msg string
			ordinal              int
		)
		if err := rows.Scan(
			&key, &ordinal, &res.GenerationMWh, &res.Price, &fuel, &res.MarginalGenerationMWh,
			&res.MarginalRateBefore, &res.MarginalRateAfter, &res.Curtailed, &disp, &res.AvoidedEmissionsLbs, &msg,
		); err != nil {
			return nil, err
		}
		res.Hour, err = hourkey.ParseKey(key)
		if err != nil {
			return nil, err
		}
		res.MarginalFuel = fuelmix.FuelCategory(fuel)
		res.Displacement = emissions.Displacement(disp)
		if msg != "" {
			res.Err = errors.New(msg)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func resultValues(runID string, res emissions.HourlyAllocationResult) []any {
	var msg string
	if res.Err != nil {
		msg = res.Err.Error()
	}
	return []any{
		runID,
		res.Hour.String(),
		res.Hour.Ordinal(),
		res.GenerationMWh,
		res.Price,
		string(res.MarginalFuel),
		res.MarginalGenerationMWh,
		res.MarginalRateBefore,
		res.MarginalRateAfter,
		res.Curtailed,
		string(res.Displacement),
		res.AvoidedEmissionsLbs,
		msg,
	}
}

var _ emissions.RunRepository = (*RunRepository)(nil)
