// Package describe computes the four descriptive views of an activity column:
// the time series line, histogram with density, a sub-range boxplot and a
// scatter with polynomial trend.
package describe

import (
	"errors"
	"fmt"
	"math"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/stats"
)

const (
	densityPoints = 200
	trendPoints   = 100

	DefaultBoxFrom = 1900
	DefaultBoxTo   = 2000
)

var (
	// ErrEmptyRange means the year filter left no rows. Callers show a
	// warning instead of charts.
	ErrEmptyRange = errors.New("no data in the selected year range")
	ErrNoYear     = errors.New("table has no YEAR column")
)

// Config holds display parameters. Zero values fall back to defaults.
type Config struct {
	YearMin     int
	YearMax     int
	HistBins    int
	TrendDegree int
	PointSize   float64
	PointAlpha  float64
	BoxFrom     int
	BoxTo       int
}

// DefaultConfig matches the dashboard's initial parameters.
func DefaultConfig() Config {
	return Config{
		YearMin:     1764,
		YearMax:     1928,
		HistBins:    38,
		TrendDegree: 3,
		PointSize:   26,
		PointAlpha:  0.5,
		BoxFrom:     DefaultBoxFrom,
		BoxTo:       DefaultBoxTo,
	}
}

func (c Config) normalized() Config {
	if c.HistBins < 1 {
		c.HistBins = 30
	}
	if c.TrendDegree < 1 {
		c.TrendDegree = 1
	}
	if c.BoxFrom == 0 && c.BoxTo == 0 {
		c.BoxFrom, c.BoxTo = DefaultBoxFrom, DefaultBoxTo
	}
	if c.YearMax < c.YearMin {
		c.YearMin, c.YearMax = c.YearMax, c.YearMin
	}
	return c
}

// Point is an (x, y) pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distribution is the histogram view with its density overlay.
type Distribution struct {
	Bins    []stats.Bin `json:"bins"`
	Density []Point     `json:"density,omitempty"` // empty for zero-variance data
	Values  []float64   `json:"-"`
}

// BoxStats summarizes the boxplot sub-range.
type BoxStats struct {
	From    int           `json:"from"`
	To      int           `json:"to"`
	Summary stats.Summary `json:"summary"`
	Values  []float64     `json:"-"`
}

// Trend is the fitted polynomial evaluated over a fine year grid.
type Trend struct {
	Degree int     `json:"degree"` // may be lower than requested when points are scarce
	Line   []Point `json:"line"`
}

// Views is the pure-data result of Build.
type Views struct {
	Column       string        `json:"column"`
	Config       Config        `json:"config"`
	Rows         int           `json:"rows"`
	Line         [][]Point     `json:"line"` // contiguous non-missing segments
	Distribution *Distribution `json:"distribution,omitempty"`
	Box          *BoxStats     `json:"box,omitempty"`
	Scatter      []Point       `json:"scatter"`
	Trend        *Trend        `json:"trend,omitempty"`
}

// Build filters t to the configured year range and computes every view. A
// view that lacks data is left nil rather than failing the whole build.
func Build(t *dataset.Table, column string, cfg Config) (*Views, error) {
	cfg = cfg.normalized()
	if !t.Indexed() {
		return nil, ErrNoYear
	}
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("column %q not found", column)
	}

	filtered := t.Filter(cfg.YearMin, cfg.YearMax)
	if filtered.Empty() {
		return nil, ErrEmptyRange
	}

	years := filtered.Years()
	values, _ := filtered.Column(column)

	v := &Views{
		Column: column,
		Config: cfg,
		Rows:   filtered.Len(),
		Line:   lineSegments(years, values),
	}

	clean := stats.DropNaN(values)
	if len(clean) > 0 {
		v.Distribution = distribution(clean, cfg.HistBins)
	}

	v.Box = boxStats(filtered, column, cfg.BoxFrom, cfg.BoxTo)

	var xs, ys []float64
	for i, y := range values {
		if math.IsNaN(y) {
			continue
		}
		xs = append(xs, float64(years[i]))
		ys = append(ys, y)
		v.Scatter = append(v.Scatter, Point{X: float64(years[i]), Y: y})
	}
	if len(xs) > 1 {
		trend, err := fitTrend(xs, ys, cfg.TrendDegree)
		if err != nil {
			return nil, err
		}
		v.Trend = trend
	}
	return v, nil
}

func lineSegments(years []int, values []float64) [][]Point {
	var segments [][]Point
	var cur []Point
	for i, y := range values {
		if math.IsNaN(y) {
			if len(cur) > 0 {
				segments = append(segments, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, Point{X: float64(years[i]), Y: y})
	}
	if len(cur) > 0 {
		segments = append(segments, cur)
	}
	return segments
}

func distribution(values []float64, bins int) *Distribution {
	d := &Distribution{Values: values}
	d.Bins, _ = stats.Histogram(values, bins)

	kde, err := stats.NewKDE(values)
	if err != nil {
		return d
	}
	s := stats.Describe(values)
	xs, ys := kde.Curve(s.Min, s.Max, densityPoints)
	d.Density = make([]Point, len(xs))
	for i := range xs {
		d.Density[i] = Point{X: xs[i], Y: ys[i]}
	}
	return d
}

func boxStats(t *dataset.Table, column string, from, to int) *BoxStats {
	sub := t.Filter(from, to).DropNA(column)
	if sub.Empty() {
		return nil
	}
	values, _ := sub.Column(column)
	return &BoxStats{
		From:    from,
		To:      to,
		Summary: stats.Describe(values),
		Values:  values,
	}
}

// fitTrend clamps the degree to one below the number of distinct years so
// the fit stays determined.
func fitTrend(xs, ys []float64, degree int) (*Trend, error) {
	distinct := make(map[float64]struct{}, len(xs))
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		distinct[x] = struct{}{}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if len(distinct) < 2 {
		return nil, nil
	}
	if degree > len(distinct)-1 {
		degree = len(distinct) - 1
	}

	poly, err := stats.PolyFit(xs, ys, degree)
	if err != nil {
		return nil, fmt.Errorf("trend fit: %w", err)
	}

	grid := stats.Linspace(lo, hi, trendPoints)
	line := make([]Point, len(grid))
	for i, x := range grid {
		line[i] = Point{X: x, Y: poly.Eval(x)}
	}
	return &Trend{Degree: degree, Line: line}, nil
}
