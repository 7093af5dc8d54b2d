package pricing

import (
	"errors"
	"fmt"
	"math"

	"windfarm-impact/internal/hourkey"
)

var (
	// ErrMixedLocations is returned when a series holds prices for more than one pricing node.
	ErrMixedLocations = errors.New("pricing: mixed locations")
	// ErrInvalidPrice is returned for NaN or infinite prices.
	ErrInvalidPrice = errors.New("pricing: invalid price")
)

// Record is the locational marginal price ($/MWh) of one pricing node in one hour.
type Record struct {
	Hour         hourkey.Key
	LocationID   int
	LocationName string
	Price        float64
}

// Series is an immutable hourly price series for a single pricing node.
// When a key appears more than once the first record wins.
type Series struct {
	records []Record
	index   map[hourkey.Key]int
}

// NewSeries copies and indexes records.
func NewSeries(records []Record) (Series, error) {
	s := Series{
		records: append([]Record(nil), records...),
		index:   make(map[hourkey.Key]int, len(records)),
	}
	for i, r := range s.records {
		if r.LocationID != s.records[0].LocationID {
			return Series{}, fmt.Errorf("%w: %d and %d", ErrMixedLocations, s.records[0].LocationID, r.LocationID)
		}
		if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
			return Series{}, fmt.Errorf("%w: %s", ErrInvalidPrice, r.Hour)
		}
		if _, ok := s.index[r.Hour]; !ok {
			s.index[r.Hour] = i
		}
	}
	return s, nil
}

// PriceAt returns the price record for an hour.
func (s Series) PriceAt(k hourkey.Key) (Record, bool) {
	i, ok := s.index[k]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Len returns the number of records.
func (s Series) Len() int { return len(s.records) }

// Records returns a copy of the records in load order.
func (s Series) Records() []Record {
	return append([]Record(nil), s.records...)
}

// Keys returns the hour of every record in load order, duplicates included.
func (s Series) Keys() []hourkey.Key {
	keys := make([]hourkey.Key, len(s.records))
	for i, r := range s.records {
		keys[i] = r.Hour
	}
	return keys
}

// CountBelow returns the number of distinct hours priced strictly below threshold.
func (s Series) CountBelow(threshold float64) int {
	var n int
	for _, i := range s.index {
		if s.records[i].Price < threshold {
			n++
		}
	}
	return n
}
