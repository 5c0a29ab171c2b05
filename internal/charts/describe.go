package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/lox/sunspots/internal/describe"
)

// Descriptive renders the 2x2 figure: time series, histogram with density,
// boxplot and scatter with trend. Sub-views without data are left blank.
func Descriptive(w io.Writer, v *describe.Views) (err error) {
	defer func(start time.Time) { observe("describe", start, err) }(time.Now())

	if v == nil {
		return ErrNothingToDraw
	}

	line, err := linePlot(v)
	if err != nil {
		return err
	}
	hist, err := histogramPlot(v)
	if err != nil {
		return err
	}
	box, err := boxPlot(v)
	if err != nil {
		return err
	}
	scatter, err := scatterPlot(v)
	if err != nil {
		return err
	}

	return writeGrid(w, [][]*plot.Plot{
		{line, hist},
		{box, scatter},
	}, GridSize)
}

func linePlot(v *describe.Views) (*plot.Plot, error) {
	p := newPlot(fmt.Sprintf("%s over time (%d-%d)", v.Column, v.Config.YearMin, v.Config.YearMax), "Year", v.Column)
	for _, seg := range v.Line {
		xs, ys := unzip(seg)
		if len(xs) == 1 {
			s, err := plotter.NewScatter(xys(xs, ys))
			if err != nil {
				return nil, fmt.Errorf("line point: %w", err)
			}
			s.GlyphStyle.Color = colorPrimary
			s.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(s)
			continue
		}
		if _, err := addLine(p, xs, ys, colorPrimary, vg.Points(1.5)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func histogramPlot(v *describe.Views) (*plot.Plot, error) {
	p := newPlot(fmt.Sprintf("Distribution of %s", v.Column), v.Column, "Density")
	d := v.Distribution
	if d == nil || len(d.Bins) == 0 {
		return p, nil
	}

	bins := make([]plotter.HistogramBin, len(d.Bins))
	for i, b := range d.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: b.Density}
	}
	h := &plotter.Histogram{
		Bins:      bins,
		Width:     d.Bins[0].Max - d.Bins[0].Min,
		FillColor: colorBarFill,
		LineStyle: plotter.DefaultLineStyle,
	}
	h.LineStyle.Color = color.White
	p.Add(h)

	if len(d.Density) > 1 {
		xs, ys := unzip(d.Density)
		l, err := addLine(p, xs, ys, colorAccent, vg.Points(2))
		if err != nil {
			return nil, err
		}
		p.Legend.Add("KDE", l)
		p.Legend.Top = true
	}
	return p, nil
}

func boxPlot(v *describe.Views) (*plot.Plot, error) {
	title := fmt.Sprintf("Boxplot of %s", v.Column)
	if v.Box != nil {
		title = fmt.Sprintf("Boxplot of %s (%d-%d)", v.Column, v.Box.From, v.Box.To)
	}
	p := newPlot(title, "", v.Column)
	if v.Box == nil || len(v.Box.Values) == 0 {
		return p, nil
	}

	b, err := plotter.NewBoxPlot(vg.Points(60), 0, plotter.Values(v.Box.Values))
	if err != nil {
		return nil, fmt.Errorf("boxplot: %w", err)
	}
	b.FillColor = colorBarFill
	p.Add(b)
	p.NominalX(fmt.Sprintf("%d-%d", v.Box.From, v.Box.To))
	return p, nil
}

func scatterPlot(v *describe.Views) (*plot.Plot, error) {
	p := newPlot(fmt.Sprintf("%s with trend", v.Column), "Year", v.Column)
	if len(v.Scatter) == 0 {
		return p, nil
	}

	xs, ys := unzip(v.Scatter)
	s, err := plotter.NewScatter(xys(xs, ys))
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(math.Sqrt(v.Config.PointSize) / 2)
	s.GlyphStyle.Color = withAlpha(colorPrimary, v.Config.PointAlpha)
	p.Add(s)

	if v.Trend != nil && len(v.Trend.Line) > 1 {
		xs, ys := unzip(v.Trend.Line)
		l, err := addLine(p, xs, ys, colorAccent, vg.Points(2))
		if err != nil {
			return nil, err
		}
		p.Legend.Add(fmt.Sprintf("degree %d fit", v.Trend.Degree), l)
		p.Legend.Top = true
	}
	return p, nil
}

func unzip(pts []describe.Point) (xs, ys []float64) {
	xs = make([]float64, 0, len(pts))
	ys = make([]float64, 0, len(pts))
	for _, pt := range pts {
		if !finite(pt.X) || !finite(pt.Y) {
			continue
		}
		xs = append(xs, pt.X)
		ys = append(ys, pt.Y)
	}
	return xs, ys
}

func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	alpha = math.Max(0, math.Min(1, alpha))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * 255))}
}
