package ver

import (
	"errors"
	"strings"
	"testing"
	"time"

	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/hourkey"
)

const history = `Date,Hour_Ending,MaineNorth2_wnd_spd,Other_wnd_spd
1999-01-01,1,100,1
2000-01-01,1,6,1
2001-01-01,1,8,1
2000-01-01,2,5,1
2000-02-29,1,50,1
2020-01-01,1,100,1
2001-01-01,2,,1
`

func TestLoadAveragesAcrossYears(t *testing.T) {
	means, err := Load(strings.NewReader(history), DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(means) != 2 {
		t.Fatalf("expected 2 keys, got %+v", means)
	}
	first := means[0]
	if first.Key != (hourkey.Key{Month: time.January, Day: 1, Hour: 0}) || first.Value != 7 || first.Count != 2 {
		t.Fatalf("unexpected first mean %+v", first)
	}
	if means[1].Value != 5 || means[1].Count != 1 {
		t.Fatalf("unexpected second mean %+v", means[1])
	}

	if _, err := generation.EstimateFromWindSpeed(means, 1000); !errors.Is(err, generation.ErrPowerCurveUnavailable) {
		t.Fatalf("expected power curve to be unavailable, got %v", err)
	}
}

func TestLoadOptions(t *testing.T) {
	means, err := Load(strings.NewReader(history), Options{Column: "Other_wnd_spd", FirstYear: 1999, LastYear: 2020}, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(means) != 2 || means[0].Count != 4 {
		t.Fatalf("unexpected means %+v", means)
	}
	if _, err := Load(strings.NewReader(history), Options{FirstYear: 2010, LastYear: 2000}, nil); err == nil {
		t.Fatalf("expected invalid window error")
	}
	if _, err := Load(strings.NewReader("Date,Hour_Ending\n"), DefaultOptions(), nil); err == nil {
		t.Fatalf("expected missing column error")
	}
}
