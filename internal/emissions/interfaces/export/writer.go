package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"windfarm-impact/internal/emissions/interfaces/chart"
	"windfarm-impact/internal/observability/metrics"
	reporting "windfarm-impact/internal/reporting/domain"
)

// Output file names inside a run directory.
const (
	ResultsCSVFile    = "hourly_results.csv"
	GridCSVFile       = "grid_emissions.csv"
	ReportXLSXFile    = "report.xlsx"
	SummaryPDFFile    = "summary.pdf"
	RateChangePNGFile = "rate_change.png"
	DurationPNGFile   = "duration_curve.png"
	WeeklyPNGFile     = "weekly_generation.png"
	defaultRunDirName = "run"
	exportDirPerm     = 0o755
	exportFilePerm    = 0o644
)

// ErrUnknownFormat is returned for a format the writer cannot produce.
var ErrUnknownFormat = errors.New("export: unknown format")

// DirWriter writes a report into <root>/<run id>/.
type DirWriter struct {
	root    string
	formats []string
	metrics *metrics.Metrics
	logger  logrus.FieldLogger
}

// WriterOption configures a DirWriter.
type WriterOption func(*DirWriter)

// WithMetrics counts exports by format.
func WithMetrics(m *metrics.Metrics) WriterOption {
	return func(w *DirWriter) {
		w.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) WriterOption {
	return func(w *DirWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewDirWriter validates formats (csv, xlsx, pdf, png).
func NewDirWriter(root string, formats []string, opts ...WriterOption) (*DirWriter, error) {
	if root == "" {
		return nil, errors.New("export: root dir required")
	}
	for _, f := range formats {
		switch f {
		case "csv", "xlsx", "pdf", "png":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	w := &DirWriter{
		root:    root,
		formats: append([]string(nil), formats...),
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write renders every configured format and returns the written paths.
func (w *DirWriter) Write(ctx context.Context, rep reporting.Report) ([]string, error) {
	name := rep.RunID
	if name == "" {
		name = defaultRunDirName
	}
	dir := filepath.Join(w.root, name)
	if err := os.MkdirAll(dir, exportDirPerm); err != nil {
		return nil, err
	}

	var written []string
	for _, format := range w.formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		paths, err := w.writeFormat(dir, format, rep)
		if err != nil {
			w.metrics.IncExport(format, metrics.ResultError)
			return written, fmt.Errorf("export %s: %w", format, err)
		}
		w.metrics.IncExport(format, metrics.ResultSuccess)
		written = append(written, paths...)
	}
	return written, nil
}

func (w *DirWriter) writeFormat(dir, format string, rep reporting.Report) ([]string, error) {
	switch format {
	case "csv":
		var results, grid bytes.Buffer
		if err := WriteResultsCSV(&results, rep.Results); err != nil {
			return nil, err
		}
		if err := WriteGridCSV(&grid, rep.Grid); err != nil {
			return nil, err
		}
		return writeFiles(dir, map[string][]byte{
			ResultsCSVFile: results.Bytes(),
			GridCSVFile:    grid.Bytes(),
		})
	case "xlsx":
		data, err := BuildReportXLSX(rep)
		if err != nil {
			return nil, err
		}
		return writeFiles(dir, map[string][]byte{ReportXLSXFile: data})
	case "pdf":
		data, err := BuildSummaryPDF(rep)
		if err != nil {
			return nil, err
		}
		return writeFiles(dir, map[string][]byte{SummaryPDFFile: data})
	case "png":
		files := make(map[string][]byte, 3)
		charts := []struct {
			name   string
			render func() ([]byte, error)
		}{
			{RateChangePNGFile, func() ([]byte, error) { return chart.RateChangePNG(rep.Changes) }},
			{DurationPNGFile, func() ([]byte, error) { return chart.DurationCurvePNG(rep.Duration) }},
			{WeeklyPNGFile, func() ([]byte, error) { return chart.WeeklyGenerationPNG(rep.Weekly) }},
		}
		for _, c := range charts {
			data, err := c.render()
			if errors.Is(err, chart.ErrNoData) {
				w.logger.WithField("chart", c.name).Warn("chart skipped: no data")
				continue
			}
			if err != nil {
				return nil, err
			}
			files[c.name] = data
		}
		return writeFiles(dir, files)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeFiles(dir string, files map[string][]byte) ([]string, error) {
	paths := make([]string, 0, len(files))
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, exportFilePerm); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}
