package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	emissions "windfarm-impact/internal/emissions/domain"
	"windfarm-impact/internal/hourkey"
)

func TestRunRepository(t *testing.T) {
	repo := NewRunRepository()
	ctx := context.Background()
	results := []emissions.HourlyAllocationResult{
		{Hour: hourkey.Key{Month: time.January, Day: 1}, GenerationMWh: 10},
	}
	if err := repo.SaveRun(ctx, emissions.Run{ID: "r1", Hours: 1}, results); err != nil {
		t.Fatalf("save: %v", err)
	}
	results[0].GenerationMWh = 99

	run, err := repo.FindRun(ctx, "r1")
	if err != nil || run.Hours != 1 {
		t.Fatalf("find: %v %+v", err, run)
	}
	got, err := repo.ListResults(ctx, "r1")
	if err != nil || len(got) != 1 || got[0].GenerationMWh != 10 {
		t.Fatalf("list: %v %+v", err, got)
	}
	if _, err := repo.FindRun(ctx, "missing"); !errors.Is(err, emissions.ErrRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.SaveRun(ctx, emissions.Run{}, nil); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
