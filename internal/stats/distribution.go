package stats

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoData       = errors.New("no data")
	ErrZeroVariance = errors.New("zero variance")
)

// Bin is one histogram bucket. Density is normalized so that the bucket
// areas sum to one.
type Bin struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   float64 `json:"count"`
	Density float64 `json:"density"`
}

// Histogram buckets xs into n equal-width bins spanning [min, max]. The last
// bin is closed on the right. NaN values are ignored.
func Histogram(xs []float64, n int) ([]Bin, error) {
	vals := DropNaN(xs)
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	if n < 1 {
		n = 1
	}
	slices.Sort(vals)

	lo, hi := vals[0], vals[len(vals)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	dividers := floats.Span(make([]float64, n+1), lo, hi)
	// stat.Histogram wants the upper divider strictly above the max value.
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, vals, nil)

	width := (hi - lo) / float64(n)
	total := float64(len(vals))
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{
			Min:     lo + float64(i)*width,
			Max:     lo + float64(i+1)*width,
			Count:   counts[i],
			Density: counts[i] / (total * width),
		}
	}
	bins[n-1].Max = hi
	return bins, nil
}

// KDE is a Gaussian kernel density estimate.
type KDE struct {
	data      []float64
	bandwidth float64
}

// NewKDE fits a Gaussian KDE with Scott's rule bandwidth. NaN values are
// ignored.
func NewKDE(xs []float64) (*KDE, error) {
	vals := DropNaN(xs)
	if len(vals) == 0 {
		return nil, ErrNoData
	}
	if len(vals) < 2 {
		return nil, ErrZeroVariance
	}
	sd := stat.StdDev(vals, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil, ErrZeroVariance
	}
	factor := math.Pow(float64(len(vals)), -1.0/5)
	return &KDE{data: vals, bandwidth: sd * factor}, nil
}

// Bandwidth returns the kernel standard deviation.
func (k *KDE) Bandwidth() float64 { return k.bandwidth }

// Density evaluates the estimate at x.
func (k *KDE) Density(x float64) float64 {
	var sum float64
	for _, xi := range k.data {
		sum += distuv.UnitNormal.Prob((x - xi) / k.bandwidth)
	}
	return sum / (float64(len(k.data)) * k.bandwidth)
}

// Curve evaluates the estimate on n evenly spaced points over [lo, hi].
func (k *KDE) Curve(lo, hi float64, n int) (xs, ys []float64) {
	xs = Linspace(lo, hi, n)
	ys = make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = k.Density(x)
	}
	return xs, ys
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
