// Package isone reads the CSV report format ISO New England publishes for
// fuel mix and price data. Each line starts with a record type: "C" comment,
// "H" header, "D" data and "T" trailer. The first H line names the columns;
// later H lines carry units and are skipped.
package isone

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrMissingHeader is returned when a report has no H line.
	ErrMissingHeader = errors.New("isone: report has no header")
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("isone: missing column")
)

// Report is one parsed report file.
type Report struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadReport parses a report. The record type column is stripped from the
// header and from every data row.
func ReadReport(r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	rep := &Report{index: make(map[string]int)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) == 0 {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(record[0])) {
		case "H":
			if rep.Header != nil {
				continue
			}
			rep.Header = trimAll(record[1:])
			for i, name := range rep.Header {
				rep.index[strings.ToLower(name)] = i
			}
		case "D":
			if rep.Header == nil {
				return nil, ErrMissingHeader
			}
			rep.Rows = append(rep.Rows, trimAll(record[1:]))
		}
	}
	if rep.Header == nil {
		return nil, ErrMissingHeader
	}
	return rep, nil
}

// Columns resolves column names to indexes, case-insensitively.
func (r *Report) Columns(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		idx, ok := r.index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		out[i] = idx
	}
	return out, nil
}

// Field returns row[col], or "" when the row is short.
func Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ReadFile parses the report at path.
func ReadFile(path string) (*Report, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rep, err := ReadReport(file)
	if err != nil {
		return nil, fmt.Errorf("isone: %s: %w", filepath.Base(path), err)
	}
	return rep, nil
}

// ListDir returns the CSV files of a report directory in name order.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
