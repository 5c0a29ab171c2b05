// Package forecast fits an additive piecewise-linear trend plus Fourier
// seasonality model to a yearly series, predicts with intervals, and joins
// predictions back to observations as residuals.
package forecast

import (
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/metrics"
)

var (
	ErrMissingColumns = errors.New("forecast table needs 'ds' and 'y' columns")
	ErrFitFailed      = errors.New("model fit failed")
	ErrNotFitted      = errors.New("model has not been fitted")
)

// minNoise floors the scaled noise estimate so a perfect fit still keeps the
// penalty rows and the system stays full rank.
const minNoise = 1e-2

// Point is one prediction.
type Point struct {
	Date  time.Time `json:"ds"`
	Yhat  float64   `json:"yhat"`
	Lower float64   `json:"yhat_lower"`
	Upper float64   `json:"yhat_upper"`
	Trend float64   `json:"trend"`
	Cycle float64   `json:"cycle"`
}

// Model is an additive trend + seasonality regression.
type Model struct {
	opts Options

	fitted  bool
	history []time.Time // every table date, including rows without a value
	t0      float64     // first observed decimal year
	span    float64     // decimal years covered by observations
	yScale  float64
	cps     []float64 // changepoints in scaled time
	coef    []float64 // intercept, slope, deltas..., fourier...
	sigma   float64   // residual standard deviation in y units
	deltaB  float64   // mean absolute changepoint delta (scaled)
	z       float64
}

// New returns an unfitted model.
func New(opts Options) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("forecast options: %w", err)
	}
	return &Model{opts: opts}, nil
}

// Options returns the model configuration.
func (m *Model) Options() Options { return m.opts }

// Changepoints returns the trend changepoints as decimal years.
func (m *Model) Changepoints() []float64 {
	out := make([]float64, len(m.cps))
	for i, c := range m.cps {
		out[i] = m.t0 + c*m.span
	}
	return out
}

// Fit estimates the model from a table with ds and y columns. Rows with a
// missing y are ignored.
func (m *Model) Fit(t *dataset.Table) error {
	start := time.Now()
	err := m.fit(t)
	metrics.ForecastFitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ForecastFits.WithLabelValues("error").Inc()
		return err
	}
	metrics.ForecastFits.WithLabelValues("ok").Inc()
	log.Printf("forecast: fitted %d rows with %d changepoints in %v", len(m.history), len(m.cps), time.Since(start).Round(time.Millisecond))
	return nil
}

func (m *Model) fit(t *dataset.Table) error {
	if !t.Indexed() || !t.HasColumn(dataset.ValueColumn) {
		return ErrMissingColumns
	}

	history := t.Dates()
	clean := t.DropNA(dataset.ValueColumn)
	dates := clean.Dates()
	y, _ := clean.Column(dataset.ValueColumn)
	if len(y) < 2 {
		return fmt.Errorf("%w: need at least 2 observations, have %d", ErrFitFailed, len(y))
	}

	ts := make([]float64, len(dates))
	for i, d := range dates {
		ts[i] = decimalYear(d)
	}
	t0, t1 := floats.Min(ts), floats.Max(ts)
	if t1 == t0 {
		return fmt.Errorf("%w: observations span a single date", ErrFitFailed)
	}

	m.t0 = t0
	m.span = t1 - t0
	m.yScale = math.Max(math.Abs(floats.Min(y)), math.Abs(floats.Max(y)))
	if m.yScale == 0 {
		m.yScale = 1
	}

	s := make([]float64, len(ts))
	for i, v := range ts {
		s[i] = (v - t0) / m.span
	}
	ys := make([]float64, len(y))
	for i, v := range y {
		ys[i] = v / m.yScale
	}
	m.cps = changepoints(s, m.opts.NChangepoints, m.opts.ChangepointRange)

	x := m.design(ts)
	weights := m.penalties()

	coef, err := solvePenalized(x, ys, weights, 1)
	if err != nil {
		return err
	}
	noise := math.Max(rms(x, coef, ys), minNoise)
	coef, err = solvePenalized(x, ys, weights, noise)
	if err != nil {
		return err
	}

	m.coef = coef
	m.sigma = rms(x, coef, ys) * m.yScale
	m.deltaB = 0
	if n := len(m.cps); n > 0 {
		for _, d := range coef[2 : 2+n] {
			m.deltaB += math.Abs(d)
		}
		m.deltaB /= float64(n)
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + m.opts.IntervalWidth/2)

	slices.SortFunc(history, func(a, b time.Time) int { return a.Compare(b) })
	m.history = slices.CompactFunc(history, func(a, b time.Time) bool { return a.Equal(b) })
	m.fitted = true
	return nil
}

// FutureDates returns the fitted history dates followed by horizon yearly
// steps after the last one.
func (m *Model) FutureDates(horizon int) ([]time.Time, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	out := slices.Clone(m.history)
	last := m.history[len(m.history)-1]
	for i := 1; i <= horizon; i++ {
		out = append(out, last.AddDate(i, 0, 0))
	}
	return out, nil
}

// History returns the dates the model was fitted on.
func (m *Model) History() []time.Time {
	return slices.Clone(m.history)
}

// Predict evaluates the model at each date. Intervals widen past the end of
// history to account for future trend changes.
func (m *Model) Predict(dates []time.Time) ([]Point, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}

	ts := make([]float64, len(dates))
	for i, d := range dates {
		ts[i] = decimalYear(d)
	}
	x := m.design(ts)
	nTrend := 2 + len(m.cps)
	rate := float64(len(m.cps))

	points := make([]Point, len(dates))
	for i := range dates {
		row := x.RawRowView(i)
		trend := floats.Dot(row[:nTrend], m.coef[:nTrend])
		cycle := floats.Dot(row[nTrend:], m.coef[nTrend:])

		variance := m.sigma * m.sigma
		if h := (ts[i] - m.t0 - m.span) / m.span; h > 0 && rate > 0 {
			// Compound Poisson of Laplace(0, b) slope changes at rate S per
			// unit scaled time, integrated over the horizon.
			trendSD := m.deltaB * m.yScale
			variance += rate * 2 * trendSD * trendSD * h * h * h / 3
		}
		width := m.z * math.Sqrt(variance)

		yhat := (trend + cycle) * m.yScale
		points[i] = Point{
			Date:  dates[i],
			Yhat:  yhat,
			Lower: yhat - width,
			Upper: yhat + width,
			Trend: trend * m.yScale,
			Cycle: cycle * m.yScale,
		}
	}
	return points, nil
}

// design builds [1, s, (s-c_j)+..., sin/cos...] for decimal years ts.
func (m *Model) design(ts []float64) *mat.Dense {
	seas := m.opts.seasonalities()
	cols := 2 + len(m.cps)
	for _, sz := range seas {
		cols += 2 * sz.FourierOrder
	}

	x := mat.NewDense(len(ts), cols, nil)
	for i, tv := range ts {
		s := (tv - m.t0) / m.span
		row := x.RawRowView(i)
		row[0] = 1
		row[1] = s
		j := 2
		for _, c := range m.cps {
			if s >= c {
				row[j] = s - c
			}
			j++
		}
		for _, sz := range seas {
			for k := 1; k <= sz.FourierOrder; k++ {
				arg := 2 * math.Pi * float64(k) * tv / sz.Period
				row[j] = math.Sin(arg)
				row[j+1] = math.Cos(arg)
				j += 2
			}
		}
	}
	return x
}

// penalties returns the ridge weight per coefficient. Intercept and slope
// are unpenalized.
func (m *Model) penalties() []float64 {
	_, cols := m.design([]float64{m.t0}).Dims()
	w := make([]float64, cols)
	for j := 2; j < 2+len(m.cps); j++ {
		w[j] = 1 / m.opts.ChangepointPriorScale
	}
	for j := 2 + len(m.cps); j < cols; j++ {
		w[j] = 1 / m.opts.SeasonalityPriorScale
	}
	return w
}

// changepoints places up to n changepoints on observed times within the
// first rng fraction of history, skipping the first observation.
func changepoints(s []float64, n int, rng float64) []float64 {
	histSize := int(math.Floor(float64(len(s)) * rng))
	if n+1 > histSize {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}
	idx := floats.Span(make([]float64, n+1), 0, float64(histSize-1))
	cps := make([]float64, 0, n)
	for _, v := range idx[1:] {
		cps = append(cps, s[int(math.Round(v))])
	}
	return cps
}

// solvePenalized minimizes ||y - Xb||^2 + sum((noise*w_j*b_j)^2) by
// least squares on the augmented system.
func solvePenalized(x *mat.Dense, y, weights []float64, noise float64) ([]float64, error) {
	n, p := x.Dims()
	var penalized []int
	for j, w := range weights {
		if w > 0 {
			penalized = append(penalized, j)
		}
	}

	a := mat.NewDense(n+len(penalized), p, nil)
	a.Slice(0, n, 0, p).(*mat.Dense).Copy(x)
	for r, j := range penalized {
		a.Set(n+r, j, noise*weights[j])
	}
	b := mat.NewVecDense(n+len(penalized), nil)
	for i, v := range y {
		b.SetVec(i, v)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrFitFailed, err)
		}
	}
	out := make([]float64, p)
	for j := range out {
		out[j] = coef.AtVec(j)
		if math.IsNaN(out[j]) || math.IsInf(out[j], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrFitFailed)
		}
	}
	return out, nil
}

func rms(x *mat.Dense, coef, y []float64) float64 {
	var ss float64
	for i := range y {
		r := y[i] - floats.Dot(x.RawRowView(i), coef)
		ss += r * r
	}
	return math.Sqrt(ss / float64(len(y)))
}

// decimalYear maps a date to a fractional year.
func decimalYear(d time.Time) float64 {
	d = d.UTC()
	start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return float64(d.Year()) + float64(d.Sub(start))/float64(end.Sub(start))
}
