// Package chart renders run reports as PNG line charts.
package chart

import (
	"bytes"
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	reporting "windfarm-impact/internal/reporting/domain"
)

const (
	width  = 7 * vg.Inch
	height = 3 * vg.Inch
)

// ErrNoData is returned when a chart would have no points.
var ErrNoData = errors.New("chart: no data")

var palette = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
}

type series struct {
	name   string
	points plotter.XYs
}

// RateChangePNG plots the per-hour percent change in marginal emissions rate
// against the hour of the year. Undefined hours are left out.
func RateChangePNG(changes []reporting.RateChange) ([]byte, error) {
	pts := make(plotter.XYs, 0, len(changes))
	for _, c := range changes {
		if math.IsNaN(c.Percent) || math.IsInf(c.Percent, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(c.Hour.Ordinal()), Y: c.Percent})
	}
	return render("Change in Marginal Emissions Rate", "Hour of year", "Percent change (%)",
		series{name: "MER change", points: pts})
}

// DurationCurvePNG plots new generation sorted high to low against the share
// of the year.
func DurationCurvePNG(curve []reporting.DurationPoint) ([]byte, error) {
	pts := make(plotter.XYs, len(curve))
	for i, p := range curve {
		pts[i] = plotter.XY{X: p.Percent, Y: p.GenerationMWh}
	}
	return render("Generation Duration Curve", "Share of year (%)", "Generation (MWh)",
		series{name: "New generation", points: pts})
}

// WeeklyGenerationPNG plots grid, new and net generation per week.
func WeeklyGenerationPNG(weeks []reporting.WeekTotal) ([]byte, error) {
	grid := make(plotter.XYs, len(weeks))
	added := make(plotter.XYs, len(weeks))
	net := make(plotter.XYs, len(weeks))
	for i, w := range weeks {
		x := float64(w.Week)
		grid[i] = plotter.XY{X: x, Y: w.GridGenerationMWh}
		added[i] = plotter.XY{X: x, Y: w.NewGenerationMWh}
		net[i] = plotter.XY{X: x, Y: w.NetGenerationMWh}
	}
	return render("Weekly Generation", "Week", "Generation (MWh)",
		series{name: "Grid", points: grid},
		series{name: "New", points: added},
		series{name: "Net", points: net},
	)
}

func render(title, xLabel, yLabel string, lines ...series) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	var drawn int
	for i, s := range lines {
		if len(s.points) == 0 {
			continue
		}
		line, err := plotter.NewLine(s.points)
		if err != nil {
			return nil, err
		}
		line.Color = palette[i%len(palette)]
		p.Add(line)
		p.Legend.Add(s.name, line)
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoData
	}

	w, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
