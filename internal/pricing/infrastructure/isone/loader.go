package isone

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"windfarm-impact/internal/hourkey"
	"windfarm-impact/internal/isone"
	pricing "windfarm-impact/internal/pricing/domain"
)

// DefaultLocationID is the Maine load zone pricing node.
const DefaultLocationID = 4001

const dateLayout = "01/02/2006"

// Loader reads a directory of daily hourly LMP reports for one pricing node.
type Loader struct {
	dir        string
	locationID int
	logger     logrus.FieldLogger
}

// NewLoader constructs an LMP loader.
func NewLoader(dir string, locationID int, logger logrus.FieldLogger) (*Loader, error) {
	if dir == "" {
		return nil, errors.New("isone: empty lmp directory")
	}
	if locationID <= 0 {
		return nil, fmt.Errorf("isone: invalid location id %d", locationID)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{
		dir:        dir,
		locationID: locationID,
		logger:     logger.WithFields(logrus.Fields{"source": "isone-lmp", "location_id": locationID}),
	}, nil
}

// Load parses every report and returns the node's hourly prices in key order.
// Rows with an ambiguous hour ending, a leap-day date or a missing price are
// skipped and logged.
func (l *Loader) Load(ctx context.Context) ([]pricing.Record, error) {
	paths, err := isone.ListDir(l.dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("isone: no reports in %s", l.dir)
	}
	var out []pricing.Record
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := isone.ReadFile(path)
		if err != nil {
			return nil, err
		}
		records, skipped, err := ParseReport(rep, l.locationID)
		if err != nil {
			return nil, fmt.Errorf("isone: %s: %w", path, err)
		}
		for _, s := range skipped {
			l.logger.WithFields(logrus.Fields{"file": path, "reason": s}).Warn("lmp row skipped")
		}
		out = append(out, records...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Hour.Less(out[j].Hour) })
	l.logger.WithFields(logrus.Fields{"files": len(paths), "hours": len(out)}).Info("lmp reports loaded")
	return out, nil
}

// ParseReport returns the price records of one node. Skippable rows are
// returned as errors in skipped; malformed rows fail the report.
func ParseReport(rep *isone.Report, locationID int) (records []pricing.Record, skipped []error, err error) {
	cols, err := rep.Columns("Date", "Hour Ending", "Location ID", "Location Name", "Locational Marginal Price")
	if err != nil {
		return nil, nil, err
	}
	for _, row := range rep.Rows {
		id, err := strconv.Atoi(isone.Field(row, cols[2]))
		if err != nil || id != locationID {
			continue
		}
		date, err := time.Parse(dateLayout, isone.Field(row, cols[0]))
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", hourkey.ErrInvalidTimestamp, isone.Field(row, cols[0]))
		}
		he, err := hourkey.ParseHourEnding(isone.Field(row, cols[1]))
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		key, err := hourkey.FromHourEnding(date, he)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(isone.Field(row, cols[4])), 64)
		if err != nil || math.IsNaN(price) {
			skipped = append(skipped, fmt.Errorf("%w: %s: %q", pricing.ErrInvalidPrice, key, isone.Field(row, cols[4])))
			continue
		}
		records = append(records, pricing.Record{
			Hour:         key,
			LocationID:   id,
			LocationName: isone.Field(row, cols[3]),
			Price:        price,
		})
	}
	return records, skipped, nil
}
