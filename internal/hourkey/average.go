package hourkey

import (
	"errors"
	"sort"
	"time"
)

// Sample is a timestamped value from a multi-year series.
type Sample struct {
	Time  time.Time
	Value float64
}

// Mean is the average of all samples sharing a key.
type Mean struct {
	Key   Key
	Value float64
	Count int
}

// MeanByKey averages values across every year that shares an hour key.
// Leap-day samples are discarded. The result is ordered by key.
func MeanByKey(samples []Sample) ([]Mean, error) {
	sums := make(map[Key]*Mean)
	for _, s := range samples {
		k, err := FromTime(s.Time)
		if errors.Is(err, ErrLeapDay) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m, ok := sums[k]
		if !ok {
			m = &Mean{Key: k}
			sums[k] = m
		}
		m.Value += s.Value
		m.Count++
	}

	result := make([]Mean, 0, len(sums))
	for _, m := range sums {
		m.Value /= float64(m.Count)
		result = append(result, *m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key.Less(result[j].Key) })
	return result, nil
}
