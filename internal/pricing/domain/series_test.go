package pricing

import (
	"errors"
	"testing"
	"time"

	"windfarm-impact/internal/hourkey"
)

func TestSeriesPriceAt(t *testing.T) {
	k := hourkey.Key{Month: time.October, Day: 3, Hour: 2}
	s, err := NewSeries([]Record{
		{Hour: k, LocationID: 4001, LocationName: ".Z.MAINE", Price: 2.5},
		{Hour: hourkey.Key{Month: time.October, Day: 3, Hour: 3}, LocationID: 4001, Price: 30},
	})
	if err != nil {
		t.Fatalf("new series: %v", err)
	}
	rec, ok := s.PriceAt(k)
	if !ok || rec.Price != 2.5 || rec.LocationName != ".Z.MAINE" {
		t.Fatalf("unexpected price record %+v", rec)
	}
	if s.CountBelow(4) != 1 {
		t.Fatalf("expected 1 hour below threshold, got %d", s.CountBelow(4))
	}
}

func TestSeriesRejectsMixedLocations(t *testing.T) {
	_, err := NewSeries([]Record{{LocationID: 4001}, {LocationID: 4002}})
	if !errors.Is(err, ErrMixedLocations) {
		t.Fatalf("expected ErrMixedLocations, got %v", err)
	}
}
