// Package csvfile caches the hourly grid fuel mix table as CSV.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	fuelmix "windfarm-impact/internal/fuelmix/domain"
	"windfarm-impact/internal/hourkey"
)

var header = []string{"Date", "Fuel Category", "Generation (MWh)", "Marginal Flag"}

// Write stores the table at path, creating parent directories.
func Write(path string, table fuelmix.Table) error {
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
	for _, r := range table.Records() {
		flag := string(fuelmix.MarginalNo)
		if r.Marginal {
			flag = string(fuelmix.MarginalYes)
		}
		if err := writer.Write([]string{
			r.Hour.String(),
			string(r.Fuel),
			strconv.FormatFloat(r.GenerationMWh, 'f', -1, 64),
			flag,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Read loads a table written by Write.
func Read(path string) (fuelmix.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return fuelmix.Table{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return fuelmix.Table{}, err
	}
	if len(rows) < 1 {
		return fuelmix.Table{}, errors.New("csvfile: empty fuel mix table")
	}
	idx := make(map[string]int)
	for i, name := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(header))
	for i, name := range header {
		col, ok := idx[strings.ToLower(name)]
		if !ok {
			return fuelmix.Table{}, fmt.Errorf("csvfile: missing column %q", name)
		}
		cols[i] = col
	}

	records := make([]fuelmix.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) < len(rows[0]) {
			return fuelmix.Table{}, fmt.Errorf("csvfile: line %d: short row", n+2)
		}
		key, err := hourkey.ParseKey(row[cols[0]])
		if err != nil {
			return fuelmix.Table{}, fmt.Errorf("csvfile: line %d: %w", n+2, err)
		}
		gen, err := strconv.ParseFloat(row[cols[2]], 64)
		if err != nil {
			return fuelmix.Table{}, fmt.Errorf("csvfile: line %d: invalid generation %q", n+2, row[cols[2]])
		}
		records = append(records, fuelmix.Record{
			Hour:          key,
			Fuel:          fuelmix.FuelCategory(row[cols[1]]),
			GenerationMWh: gen,
			Marginal:      fuelmix.ParseMarginalIndicator(row[cols[3]]) == fuelmix.MarginalYes,
			Samples:       1,
		})
	}
	return fuelmix.NewTable(records)
}
