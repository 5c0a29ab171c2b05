package charts

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/lox/sunspots/internal/forecast"
)

// Forecast renders observations, the point forecast and its interval band.
func Forecast(w io.Writer, res *forecast.Result) (err error) {
	defer func(start time.Time) { observe("forecast", start, err) }(time.Now())

	if res == nil || len(res.Points) == 0 {
		return ErrNothingToDraw
	}
	p := newPlot("Sunspot activity forecast", "Year", "Activity")

	var xs, lo, hi, yhat []float64
	for _, pt := range res.Points {
		if !finite(pt.Yhat) || !finite(pt.Lower) || !finite(pt.Upper) {
			continue
		}
		xs = append(xs, yearOf(pt.Date))
		yhat = append(yhat, pt.Yhat)
		lo = append(lo, pt.Lower)
		hi = append(hi, pt.Upper)
	}
	if len(xs) == 0 {
		return ErrNothingToDraw
	}

	band, err := plotter.NewPolygon(bandOutline(xs, lo, hi))
	if err != nil {
		return fmt.Errorf("interval band: %w", err)
	}
	band.Color = colorBand
	band.LineStyle.Width = 0
	p.Add(band)

	if len(res.Residuals) > 0 {
		ax := make([]float64, len(res.Residuals))
		ay := make([]float64, len(res.Residuals))
		for i, r := range res.Residuals {
			ax[i] = yearOf(r.Date)
			ay[i] = r.Actual
		}
		s, err := plotter.NewScatter(xys(ax, ay))
		if err != nil {
			return fmt.Errorf("actuals: %w", err)
		}
		s.GlyphStyle.Color = colorActual
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add("observed", s)
	}

	l, err := addLine(p, xs, yhat, colorPrimary, vg.Points(1.5))
	if err != nil {
		return err
	}
	p.Legend.Add("forecast", l)
	p.Legend.Add(fmt.Sprintf("%.0f%% interval", res.Options.IntervalWidth*100), band)
	p.Legend.Top = true

	return writeSingle(w, p, WideSize)
}

// Components renders the trend and cycle components stacked vertically.
func Components(w io.Writer, res *forecast.Result) (err error) {
	defer func(start time.Time) { observe("components", start, err) }(time.Now())

	if res == nil || len(res.Points) == 0 {
		return ErrNothingToDraw
	}

	xs := make([]float64, len(res.Points))
	trend := make([]float64, len(res.Points))
	cycle := make([]float64, len(res.Points))
	for i, pt := range res.Points {
		xs[i] = yearOf(pt.Date)
		trend[i] = pt.Trend
		cycle[i] = pt.Cycle
	}

	tp := newPlot("Trend", "Year", "trend")
	if _, err := addLine(tp, xs, trend, colorPrimary, vg.Points(1.5)); err != nil {
		return err
	}
	cp := newPlot("Sunspot cycle", "Year", "cycle")
	if _, err := addLine(cp, xs, cycle, colorPrimary, vg.Points(1.5)); err != nil {
		return err
	}
	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = colorZeroLine
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	cp.Add(zero)

	return writeGrid(w, [][]*plot.Plot{{tp}, {cp}}, StackSize)
}

// Residuals renders actual minus predicted over time with a zero line.
func Residuals(w io.Writer, res *forecast.Result) (err error) {
	defer func(start time.Time) { observe("residuals", start, err) }(time.Now())

	if res == nil || len(res.Residuals) == 0 {
		return ErrNothingToDraw
	}
	p := newPlot("Residuals (actual - predicted)", "Year", "residual")

	xs := make([]float64, len(res.Residuals))
	ys := make([]float64, len(res.Residuals))
	for i, r := range res.Residuals {
		xs[i] = yearOf(r.Date)
		ys[i] = r.Residual
	}

	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	zero.Color = colorZeroLine
	zero.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(zero)

	if _, err := addLine(p, xs, ys, colorPrimary, vg.Points(1)); err != nil {
		return err
	}
	s, err := plotter.NewScatter(xys(xs, ys))
	if err != nil {
		return fmt.Errorf("residual points: %w", err)
	}
	s.GlyphStyle.Color = colorAccent
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(s)

	return writeSingle(w, p, WideSize)
}

// bandOutline walks the upper bound forward and the lower bound back.
func bandOutline(xs, lo, hi []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, 2*len(xs))
	for i := range xs {
		pts = append(pts, plotter.XY{X: xs[i], Y: hi[i]})
	}
	for i := len(xs) - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: xs[i], Y: lo[i]})
	}
	return pts
}

func yearOf(t time.Time) float64 {
	t = t.UTC()
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	return float64(t.Year()) + float64(t.Sub(start))/float64(end.Sub(start))
}
