package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewPoints is returned when a fit has fewer points than it needs.
var ErrTooFewPoints = errors.New("too few points")

// Polynomial is a least-squares polynomial fitted on standardized x values.
type Polynomial struct {
	Degree int
	coef   []float64 // ascending powers of the standardized x
	center float64
	scale  float64
}

// PolyFit fits y ~ x with a polynomial of the given degree. NaN pairs are
// dropped. The degree must be below the number of distinct points.
func PolyFit(x, y []float64, degree int) (*Polynomial, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("polyfit: x has %d values, y has %d", len(x), len(y))
	}
	if degree < 0 {
		return nil, fmt.Errorf("polyfit: negative degree %d", degree)
	}

	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) <= degree {
		return nil, fmt.Errorf("polyfit: degree %d needs %d points, have %d: %w", degree, degree+1, len(xs), ErrTooFewPoints)
	}

	center, scale := stat.MeanStdDev(xs, nil)
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
	}

	n, p := len(xs), degree+1
	a := mat.NewDense(n, p, nil)
	for i, xi := range xs {
		z := (xi - center) / scale
		v := 1.0
		for j := 0; j < p; j++ {
			a.Set(i, j, v)
			v *= z
		}
	}
	b := mat.NewVecDense(n, ys)

	var coef mat.VecDense
	if err := coef.SolveVec(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("polyfit: %w", err)
		}
	}

	out := &Polynomial{
		Degree: degree,
		coef:   make([]float64, p),
		center: center,
		scale:  scale,
	}
	for j := range out.coef {
		out.coef[j] = coef.AtVec(j)
		if math.IsNaN(out.coef[j]) || math.IsInf(out.coef[j], 0) {
			return nil, fmt.Errorf("polyfit: degree %d fit is degenerate", degree)
		}
	}
	return out, nil
}

// Eval returns the fitted value at x.
func (p *Polynomial) Eval(x float64) float64 {
	z := (x - p.center) / p.scale
	var y float64
	for j := len(p.coef) - 1; j >= 0; j-- {
		y = y*z + p.coef[j]
	}
	return y
}
