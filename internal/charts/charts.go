// Package charts renders dashboard views as PNG images with gonum/plot.
package charts

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/lox/sunspots/internal/metrics"
)

var ErrNothingToDraw = errors.New("nothing to draw")

// Size is the output dimension of a figure.
type Size struct {
	Width  vg.Length
	Height vg.Length
}

var (
	GridSize  = Size{Width: 16 * vg.Inch, Height: 10 * vg.Inch}
	WideSize  = Size{Width: 12 * vg.Inch, Height: 5 * vg.Inch}
	StackSize = Size{Width: 12 * vg.Inch, Height: 8 * vg.Inch}
)

var (
	colorPrimary  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorAccent   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorActual   = color.RGBA{A: 255}
	colorBand     = color.NRGBA{R: 31, G: 119, B: 180, A: 64}
	colorBarFill  = color.NRGBA{R: 31, G: 119, B: 180, A: 140}
	colorZeroLine = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	return p
}

// addLine draws a polyline through xs/ys. Callers never pass NaN.
func addLine(p *plot.Plot, xs, ys []float64, c color.Color, width vg.Length) (*plotter.Line, error) {
	l, err := plotter.NewLine(xys(xs, ys))
	if err != nil {
		return nil, fmt.Errorf("line: %w", err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = width
	p.Add(l)
	return l, nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// writeGrid lays plots out in rows and writes a single PNG.
func writeGrid(w io.Writer, plots [][]*plot.Plot, size Size) error {
	rows := len(plots)
	if rows == 0 {
		return ErrNothingToDraw
	}
	img := vgimg.New(size.Width, size.Height)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      len(plots[0]),
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func writeSingle(w io.Writer, p *plot.Plot, size Size) error {
	wt, err := p.WriterTo(size.Width, size.Height, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

func observe(view string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RendersTotal.WithLabelValues(view, status).Inc()
	metrics.RenderLatency.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
