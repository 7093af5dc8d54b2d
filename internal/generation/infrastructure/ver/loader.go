// Package ver loads ISO-NE variable energy resource wind speed history and
// averages it into a typical year.
package ver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"windfarm-impact/internal/hourkey"
)

// DefaultColumn is the Maine North II wind speed column.
const DefaultColumn = "MaineNorth2_wnd_spd"

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

// Options select the column and the year window to average.
type Options struct {
	Column    string
	FirstYear int
	LastYear  int
}

// DefaultOptions averages 2000 through 2019.
func DefaultOptions() Options {
	return Options{Column: DefaultColumn, FirstYear: 2000, LastYear: 2019}
}

// LoadFile reads a VER wind speed file from path.
func LoadFile(path string, opts Options, logger logrus.FieldLogger) ([]hourkey.Mean, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file, opts, logger)
}

// Load returns the mean wind speed (m/s) per hour key across the year window.
// Blank readings are skipped.
func Load(r io.Reader, opts Options, logger logrus.FieldLogger) ([]hourkey.Mean, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Column == "" {
		opts.Column = DefaultColumn
	}
	if opts.LastYear < opts.FirstYear {
		return nil, fmt.Errorf("ver: invalid year window %d-%d", opts.FirstYear, opts.LastYear)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, errors.New("ver: empty csv")
	}
	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, okDate := header["date"]
	heIdx, okHE := header["hour_ending"]
	speedIdx, okSpeed := header[strings.ToLower(opts.Column)]
	if !okDate || !okHE || !okSpeed {
		return nil, fmt.Errorf("ver: csv requires headers Date, Hour_Ending, %s", opts.Column)
	}

	var samples []hourkey.Sample
	var blank int
	for _, row := range rows[1:] {
		if speedIdx >= len(row) || strings.TrimSpace(row[speedIdx]) == "" {
			blank++
			continue
		}
		date, err := parseDate(row[dateIdx])
		if err != nil {
			return nil, err
		}
		if date.Year() < opts.FirstYear || date.Year() > opts.LastYear {
			continue
		}
		he, err := hourkey.ParseHourEnding(row[heIdx])
		if err != nil {
			return nil, err
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(row[speedIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("ver: %s: invalid wind speed %q", date.Format("2006-01-02"), row[speedIdx])
		}
		samples = append(samples, hourkey.Sample{
			Time:  date.Add(time.Duration(he-1) * time.Hour),
			Value: speed,
		})
	}

	means, err := hourkey.MeanByKey(samples)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"source":  "ver",
		"samples": len(samples),
		"hours":   len(means),
		"blank":   blank,
	}).Info("wind speed history averaged")
	return means, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", hourkey.ErrInvalidTimestamp, value)
}
