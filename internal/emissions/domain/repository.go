package emissions

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("emissions: run not found")

// Run is the persisted header of one allocation pass.
type Run struct {
	ID                  string
	Site                string
	Mode                Mode
	ThresholdPrice      float64
	StartedAt           time.Time
	FinishedAt          time.Time
	Hours               int
	FailedHours         int
	AvoidedEmissionsLbs float64
}

// RunRepository persists runs and their hourly results.
type RunRepository interface {
	SaveRun(ctx context.Context, run Run, results []HourlyAllocationResult) error
	FindRun(ctx context.Context, id string) (*Run, error)
	ListResults(ctx context.Context, runID string) ([]HourlyAllocationResult, error)
}
