// Package stats wraps gonum for the descriptive statistics the dashboard shows.
package stats

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Summary holds the usual descriptive statistics of a sample. Fields other
// than Count are NaN for an empty sample; Std is NaN for a single value.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Rows returns the summary as label/value pairs in display order.
func (s Summary) Rows() []SummaryRow {
	return []SummaryRow{
		{"count", float64(s.Count)},
		{"mean", s.Mean},
		{"std", s.Std},
		{"min", s.Min},
		{"25%", s.Q1},
		{"50%", s.Median},
		{"75%", s.Q3},
		{"max", s.Max},
	}
}

// MarshalJSON encodes undefined statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count  int      `json:"count"`
		Mean   *float64 `json:"mean"`
		Std    *float64 `json:"std"`
		Min    *float64 `json:"min"`
		Q1     *float64 `json:"q1"`
		Median *float64 `json:"median"`
		Q3     *float64 `json:"q3"`
		Max    *float64 `json:"max"`
	}{
		Count:  s.Count,
		Mean:   finite(s.Mean),
		Std:    finite(s.Std),
		Min:    finite(s.Min),
		Q1:     finite(s.Q1),
		Median: finite(s.Median),
		Q3:     finite(s.Q3),
		Max:    finite(s.Max),
	})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// SummaryRow is one labelled statistic.
type SummaryRow struct {
	Label string
	Value float64
}

// Valid reports whether the value is a finite number.
func (r SummaryRow) Valid() bool { return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) }

// Format renders the value for tables, with a dash for missing values.
func (r SummaryRow) Format() string {
	switch {
	case !r.Valid():
		return "-"
	case r.Label == "count":
		return strconv.Itoa(int(r.Value))
	default:
		return strconv.FormatFloat(r.Value, 'f', 4, 64)
	}
}

// DropNaN returns the finite values of xs in order.
func DropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Describe summarizes xs, ignoring NaN values. Std uses the n-1 denominator
// and quartiles interpolate linearly between order statistics.
func Describe(xs []float64) Summary {
	vals := DropNaN(xs)
	s := Summary{
		Count:  len(vals),
		Mean:   math.NaN(),
		Std:    math.NaN(),
		Min:    math.NaN(),
		Q1:     math.NaN(),
		Median: math.NaN(),
		Q3:     math.NaN(),
		Max:    math.NaN(),
	}
	if len(vals) == 0 {
		return s
	}

	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	s.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		s.Std = stat.StdDev(sorted, nil)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = Quantile(0.25, sorted)
	s.Median = Quantile(0.5, sorted)
	s.Q3 = Quantile(0.75, sorted)
	return s
}

// Quantile returns the p-quantile of sorted data using linear interpolation
// between the closest ranks at position p*(n-1).
func Quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
