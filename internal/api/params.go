package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/describe"
)

// Slider is a bounded numeric control on the dashboard.
type Slider struct {
	Name  string
	Label string
	Min   float64
	Max   float64
	Step  float64
	Value float64
}

// Display formats the current value for the control.
func (s Slider) Display() string {
	if s.Step < 1 {
		return strconv.FormatFloat(s.Value, 'f', 1, 64)
	}
	return strconv.FormatFloat(s.Value, 'f', 0, 64)
}

const (
	yearLow   = 1700
	yearHigh  = 2008
	binsLow   = 5
	binsHigh  = 100
	degLow    = 1
	degHigh   = 5
	sizeLow   = 1
	sizeHigh  = 50
	alphaLow  = 0.1
	alphaHigh = 1.0
)

// DashboardParams are the parsed query parameters of the descriptive views.
type DashboardParams struct {
	Column string
	Config describe.Config
}

// parseDashboardParams reads the dashboard query parameters. Missing or
// unparsable values take their defaults; out-of-range values are clamped.
func parseDashboardParams(q url.Values) DashboardParams {
	cfg := describe.DefaultConfig()

	cfg.YearMin = int(clamp(floatParam(q, "year_min", float64(cfg.YearMin)), yearLow, yearHigh))
	cfg.YearMax = int(clamp(floatParam(q, "year_max", float64(cfg.YearMax)), yearLow, yearHigh))
	if cfg.YearMin > cfg.YearMax {
		cfg.YearMin, cfg.YearMax = cfg.YearMax, cfg.YearMin
	}
	cfg.HistBins = int(clamp(floatParam(q, "bins", float64(cfg.HistBins)), binsLow, binsHigh))
	cfg.TrendDegree = int(clamp(floatParam(q, "degree", float64(cfg.TrendDegree)), degLow, degHigh))
	cfg.PointSize = clamp(floatParam(q, "size", cfg.PointSize), sizeLow, sizeHigh)
	cfg.PointAlpha = clamp(floatParam(q, "alpha", cfg.PointAlpha), alphaLow, alphaHigh)
	cfg.BoxFrom = int(floatParam(q, "box_from", float64(cfg.BoxFrom)))
	cfg.BoxTo = int(floatParam(q, "box_to", float64(cfg.BoxTo)))

	column := q.Get("column")
	if column == "" {
		column = dataset.ActivityColumn
	}
	return DashboardParams{Column: column, Config: cfg}
}

// Query encodes the params so chart URLs render the same views.
func (p DashboardParams) Query() string {
	q := url.Values{}
	q.Set("column", p.Column)
	q.Set("year_min", strconv.Itoa(p.Config.YearMin))
	q.Set("year_max", strconv.Itoa(p.Config.YearMax))
	q.Set("bins", strconv.Itoa(p.Config.HistBins))
	q.Set("degree", strconv.Itoa(p.Config.TrendDegree))
	q.Set("size", strconv.FormatFloat(p.Config.PointSize, 'f', -1, 64))
	q.Set("alpha", strconv.FormatFloat(p.Config.PointAlpha, 'f', -1, 64))
	q.Set("box_from", strconv.Itoa(p.Config.BoxFrom))
	q.Set("box_to", strconv.Itoa(p.Config.BoxTo))
	return q.Encode()
}

// Sliders returns the dashboard controls set to the current values.
func (p DashboardParams) Sliders() []Slider {
	c := p.Config
	return []Slider{
		{Name: "year_min", Label: "From year", Min: yearLow, Max: yearHigh, Step: 1, Value: float64(c.YearMin)},
		{Name: "year_max", Label: "To year", Min: yearLow, Max: yearHigh, Step: 1, Value: float64(c.YearMax)},
		{Name: "bins", Label: "Histogram bins", Min: binsLow, Max: binsHigh, Step: 1, Value: float64(c.HistBins)},
		{Name: "degree", Label: "Trend degree", Min: degLow, Max: degHigh, Step: 1, Value: float64(c.TrendDegree)},
		{Name: "size", Label: "Point size", Min: sizeLow, Max: sizeHigh, Step: 1, Value: c.PointSize},
		{Name: "alpha", Label: "Point alpha", Min: alphaLow, Max: alphaHigh, Step: 0.1, Value: c.PointAlpha},
	}
}

func (p DashboardParams) String() string {
	return fmt.Sprintf("%s %d-%d bins=%d degree=%d", p.Column, p.Config.YearMin, p.Config.YearMax, p.Config.HistBins, p.Config.TrendDegree)
}

func floatParam(q url.Values, name string, def float64) float64 {
	s := q.Get(name)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
