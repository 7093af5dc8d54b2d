// Package csvfile caches hourly locational marginal prices as CSV.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"windfarm-impact/internal/hourkey"
	pricing "windfarm-impact/internal/pricing/domain"
)

var header = []string{"Date", "Location ID", "Location Name", "Locational Marginal Price"}

// Write stores price records at path, creating parent directories.
func Write(path string, records []pricing.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write([]string{
			r.Hour.String(),
			strconv.Itoa(r.LocationID),
			r.LocationName,
			strconv.FormatFloat(r.Price, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Read loads records written by Write.
func Read(path string) ([]pricing.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, errors.New("csvfile: empty price table")
	}
	idx := make(map[string]int)
	for i, name := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(header))
	for i, name := range header {
		col, ok := idx[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("csvfile: missing column %q", name)
		}
		cols[i] = col
	}

	out := make([]pricing.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < len(rows[0]) {
			return nil, fmt.Errorf("csvfile: line %d: short row", n+2)
		}
		key, err := hourkey.ParseKey(row[cols[0]])
		if err != nil {
			return nil, fmt.Errorf("csvfile: line %d: %w", n+2, err)
		}
		id, err := strconv.Atoi(row[cols[1]])
		if err != nil {
			return nil, fmt.Errorf("csvfile: line %d: invalid location id %q", n+2, row[cols[1]])
		}
		price, err := strconv.ParseFloat(row[cols[3]], 64)
		if err != nil {
			return nil, fmt.Errorf("csvfile: line %d: %w", n+2, pricing.ErrInvalidPrice)
		}
		out = append(out, pricing.Record{Hour: key, LocationID: id, LocationName: row[cols[2]], Price: price})
	}
	return out, nil
}
