package isone

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/isone"
)

var timestampLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02 15:04:05",
}

// Loader reads a directory of daily genfuelmix reports.
type Loader struct {
	dir    string
	logger logrus.FieldLogger
}

// NewLoader constructs a genfuelmix loader.
func NewLoader(dir string, logger logrus.FieldLogger) (*Loader, error) {
	if dir == "" {
		return nil, errors.New("isone: empty fuel mix directory")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{dir: dir, logger: logger.WithField("source", "isone-genfuelmix")}, nil
}

// Load parses every report in the directory into dispatch snapshots.
func (l *Loader) Load(ctx context.Context) ([]fuelmix.DispatchSnapshot, error) {
	paths, err := isone.ListDir(l.dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("isone: no reports in %s", l.dir)
	}
	var out []fuelmix.DispatchSnapshot
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := isone.ReadFile(path)
		if err != nil {
			return nil, err
		}
		snapshots, err := ParseReport(rep)
		if err != nil {
			return nil, fmt.Errorf("isone: %s: %w", path, err)
		}
		out = append(out, snapshots...)
	}
	l.logger.WithFields(logrus.Fields{"files": len(paths), "snapshots": len(out)}).Info("fuel mix reports loaded")
	return out, nil
}

// ParseReport converts report rows to snapshots. A blank generation value
// becomes NaN so the aggregator can drop it.
func ParseReport(rep *isone.Report) ([]fuelmix.DispatchSnapshot, error) {
	cols, err := rep.Columns("Date", "Time", "Fuel Category", "Gen Mw", "Marginal Flag")
	if err != nil {
		return nil, err
	}
	out := make([]fuelmix.DispatchSnapshot, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		ts, err := parseTimestamp(isone.Field(row, cols[0]) + " " + isone.Field(row, cols[1]))
		if err != nil {
			return nil, err
		}
		out = append(out, fuelmix.DispatchSnapshot{
			Timestamp:    ts,
			Fuel:         fuelmix.FuelCategory(isone.Field(row, cols[2])),
			GenerationMW: parseMW(isone.Field(row, cols[3])),
			Marginal:     fuelmix.ParseMarginalIndicator(isone.Field(row, cols[4])),
		})
	}
	return out, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", hourkey.ErrInvalidTimestamp, value)
}

func parseMW(value string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
