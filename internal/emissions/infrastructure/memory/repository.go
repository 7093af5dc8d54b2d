package memory

import (
	"context"
	"errors"
	"sync"

	emissions "windfarm-impact/internal/emissions/domain"
)

// RunRepository is an in-memory emissions.RunRepository.
type RunRepository struct {
	mu      sync.RWMutex
	runs    map[string]emissions.Run
	results map[string][]emissions.HourlyAllocationResult
}

// NewRunRepository constructs an empty repository.
func NewRunRepository() *RunRepository {
	return &RunRepository{
		runs:    make(map[string]emissions.Run),
		results: make(map[string][]emissions.HourlyAllocationResult),
	}
}

// SaveRun stores a copy of the run and its results, replacing any previous run with the same id.
func (r *RunRepository) SaveRun(ctx context.Context, run emissions.Run, results []emissions.HourlyAllocationResult) error {
	if run.ID == "" {
		return errors.New("memory: empty run id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	r.results[run.ID] = append([]emissions.HourlyAllocationResult(nil), results...)
	return nil
}

// FindRun returns a run by id.
func (r *RunRepository) FindRun(ctx context.Context, id string) (*emissions.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, emissions.ErrRunNotFound
	}
	return &run, nil
}

// ListResults returns the hourly results of a run.
func (r *RunRepository) ListResults(ctx context.Context, runID string) ([]emissions.HourlyAllocationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results, ok := r.results[runID]
	if !ok {
		return nil, emissions.ErrRunNotFound
	}
	return append([]emissions.HourlyAllocationResult(nil), results...), nil
}

var _ emissions.RunRepository = (*RunRepository)(nil)
