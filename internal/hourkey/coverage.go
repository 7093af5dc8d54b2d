package hourkey

import (
	"fmt"
	"sort"
)

// Coverage describes how a dataset's keys cover the year.
type Coverage struct {
	Distinct   int
	Duplicates []Key
	Missing    []Key
}

// Complete reports whether every hour appears exactly once.
func (c Coverage) Complete() bool {
	return c.Distinct == HoursPerYear && len(c.Duplicates) == 0 && len(c.Missing) == 0
}

// Err returns ErrIncompleteYear with counts when coverage is not complete.
func (c Coverage) Err() error {
	if c.Complete() {
		return nil
	}
	return fmt.Errorf("%w: %d distinct, %d duplicated, %d missing",
		ErrIncompleteYear, c.Distinct, len(c.Duplicates), len(c.Missing))
}

// CheckCoverage counts distinct, duplicated and missing hourly keys.
func CheckCoverage(keys []Key) Coverage {
	seen := make(map[Key]int, len(keys))
	for _, k := range keys {
		seen[k]++
	}

	var cov Coverage
	cov.Distinct = len(seen)
	for k, n := range seen {
		if n > 1 {
			cov.Duplicates = append(cov.Duplicates, k)
		}
	}
	sort.Slice(cov.Duplicates, func(i, j int) bool { return cov.Duplicates[i].Less(cov.Duplicates[j]) })

	for _, k := range All() {
		if _, ok := seen[k]; !ok {
			cov.Missing = append(cov.Missing, k)
		}
	}
	return cov
}
