// Package sam loads hourly generation profiles exported from NREL's System
// Advisor Model.
package sam

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	generation "windfarm-impact/internal/generation/domain"
	"windfarm-impact/internal/hourkey"
)

const (
	timeColumn  = "time stamp"
	powerColumn = "system power generated | (kw)"
	kWPerMW     = 1000
)

// SAM writes either case of the meridiem marker depending on version.
var timestampLayouts = []string{"Jan 2, 3:04 pm", "Jan 2, 3:04 PM"}

// LoadFile reads a SAM hourly export from path.
func LoadFile(path string, logger logrus.FieldLogger) (generation.Profile, error) {
	file, err := os.Open(path)
	if err != nil {
		return generation.Profile{}, err
	}
	defer file.Close()
	return Load(file, logger)
}

// Load reads a SAM hourly export and converts kW to MWh per hour.
// Leap-day rows are skipped.
func Load(r io.Reader, logger logrus.FieldLogger) (generation.Profile, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return generation.Profile{}, err
	}
	if len(rows) < 1 {
		return generation.Profile{}, errors.New("sam: empty csv")
	}

	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	timeIdx, ok := header[timeColumn]
	if !ok {
		return generation.Profile{}, fmt.Errorf("sam: missing %q column", "Time stamp")
	}
	powerIdx, ok := header[powerColumn]
	if !ok {
		return generation.Profile{}, fmt.Errorf("sam: missing %q column", "System power generated | (kW)")
	}

	records := make([]generation.Record, 0, len(rows)-1)
	var leapRows int
	for _, row := range rows[1:] {
		if timeIdx >= len(row) || powerIdx >= len(row) {
			continue
		}
		key, err := parseTimestamp(row[timeIdx])
		if errors.Is(err, hourkey.ErrLeapDay) {
			leapRows++
			continue
		}
		if err != nil {
			return generation.Profile{}, err
		}
		kw, err := strconv.ParseFloat(strings.TrimSpace(row[powerIdx]), 64)
		if err != nil {
			return generation.Profile{}, fmt.Errorf("sam: %s: %w", key, generation.ErrInvalidGeneration)
		}
		records = append(records, generation.Record{Hour: key, GenerationMWh: kw / kWPerMW})
	}

	profile, err := generation.NewProfile(records)
	if err != nil {
		return generation.Profile{}, err
	}
	logger.WithFields(logrus.Fields{
		"source":    "sam",
		"hours":     profile.Len(),
		"leap_rows": leapRows,
		"total_mwh": profile.TotalMWh(),
	}).Info("generation profile loaded")
	return profile, nil
}

func parseTimestamp(value string) (hourkey.Key, error) {
	var err error
	for _, layout := range timestampLayouts {
		var key hourkey.Key
		key, err = hourkey.Parse(layout, value)
		if err == nil || errors.Is(err, hourkey.ErrLeapDay) {
			return key, err
		}
	}
	return hourkey.Key{}, err
}
