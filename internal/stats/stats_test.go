package stats

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{1, 2, 3, 4, math.NaN()})

	if s.Count != 4 {
		t.Errorf("Count = %d, want 4", s.Count)
	}
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"mean", s.Mean, 2.5},
		{"std", s.Std, math.Sqrt(5.0 / 3.0)},
		{"min", s.Min, 1},
		{"q1", s.Q1, 1.75},
		{"median", s.Median, 2.5},
		{"q3", s.Q3, 3.25},
		{"max", s.Max, 4},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDescribe_Empty(t *testing.T) {
	s := Describe(nil)
	if s.Count != 0 {
		t.Errorf("Count = %d, want 0", s.Count)
	}
	if !math.IsNaN(s.Mean) || !math.IsNaN(s.Max) {
		t.Errorf("expected NaN stats, got %+v", s)
	}
}

func TestDescribe_SingleValue(t *testing.T) {
	s := Describe([]float64{7})
	if s.Mean != 7 || s.Median != 7 || s.Min != 7 || s.Max != 7 {
		t.Errorf("unexpected summary %+v", s)
	}
	if !math.IsNaN(s.Std) {
		t.Errorf("Std = %v, want NaN", s.Std)
	}
}

func TestDescribe_AllZero(t *testing.T) {
	s := Describe(make([]float64, 25))
	if s.Mean != 0 {
		t.Errorf("Mean = %v, want exactly 0", s.Mean)
	}
	if s.Std != 0 {
		t.Errorf("Std = %v, want exactly 0", s.Std)
	}
}

func TestSummaryRows(t *testing.T) {
	rows := Describe([]float64{1, 2}).Rows()
	if len(rows) != 8 {
		t.Fatalf("len(rows) = %d, want 8", len(rows))
	}
	if rows[0].Label != "count" || rows[0].Value != 2 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[4].Label != "25%" {
		t.Errorf("rows[4].Label = %q, want 25%%", rows[4].Label)
	}
}

func TestHistogram(t *testing.T) {
	bins, err := Histogram([]float64{0, 1, 2, 3, 4, math.NaN()}, 2)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("len(bins) = %d, want 2", len(bins))
	}
	if bins[0].Count != 2 || bins[1].Count != 3 {
		t.Errorf("counts = %v, %v, want 2, 3", bins[0].Count, bins[1].Count)
	}
	if bins[1].Max != 4 {
		t.Errorf("last bin max = %v, want 4", bins[1].Max)
	}

	var area float64
	for _, b := range bins {
		area += b.Density * (b.Max - b.Min)
	}
	if !approx(area, 1) {
		t.Errorf("density area = %v, want 1", area)
	}
}

func TestHistogram_ConstantValues(t *testing.T) {
	bins, err := Histogram([]float64{3, 3, 3}, 4)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}
	var total float64
	for _, b := range bins {
		total += b.Count
	}
	if total != 3 {
		t.Errorf("total count = %v, want 3", total)
	}
}

func TestHistogram_NoData(t *testing.T) {
	if _, err := Histogram([]float64{math.NaN()}, 10); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestKDE_IgnoresMissing(t *testing.T) {
	withNaN, err := NewKDE([]float64{5, math.NaN(), 10})
	if err != nil {
		t.Fatalf("NewKDE: %v", err)
	}
	clean, err := NewKDE([]float64{5, 10})
	if err != nil {
		t.Fatalf("NewKDE: %v", err)
	}
	if withNaN.Bandwidth() != clean.Bandwidth() {
		t.Errorf("bandwidth %v != %v", withNaN.Bandwidth(), clean.Bandwidth())
	}

	xs, ys := withNaN.Curve(5, 10, 200)
	if len(xs) != 200 || len(ys) != 200 {
		t.Fatalf("curve lengths %d, %d, want 200", len(xs), len(ys))
	}
	for i, y := range ys {
		if math.IsNaN(y) || y <= 0 {
			t.Fatalf("density[%d] = %v", i, y)
		}
	}
	if !approx(ys[0], ys[199]) {
		t.Errorf("density not symmetric: %v vs %v", ys[0], ys[199])
	}
}

func TestKDE_Errors(t *testing.T) {
	if _, err := NewKDE(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
	if _, err := NewKDE([]float64{4, 4, 4}); !errors.Is(err, ErrZeroVariance) {
		t.Errorf("err = %v, want ErrZeroVariance", err)
	}
}

func TestPolyFit_LineThroughTwoPoints(t *testing.T) {
	p, err := PolyFit([]float64{1800, 1900}, []float64{10, 20}, 1)
	if err != nil {
		t.Fatalf("PolyFit: %v", err)
	}
	if got := p.Eval(1800); math.Abs(got-10) > 1e-9 {
		t.Errorf("Eval(1800) = %v, want 10", got)
	}
	if got := p.Eval(1900); math.Abs(got-20) > 1e-9 {
		t.Errorf("Eval(1900) = %v, want 20", got)
	}
	if got := p.Eval(1850); math.Abs(got-15) > 1e-9 {
		t.Errorf("Eval(1850) = %v, want 15", got)
	}
}

func TestPolyFit_Cubic(t *testing.T) {
	var x, y []float64
	for i := 0; i < 50; i++ {
		xi := 1700 + float64(i)*6
		z := (xi - 1850) / 100
		x = append(x, xi)
		y = append(y, 2*z*z*z-z+4)
	}
	p, err := PolyFit(x, y, 3)
	if err != nil {
		t.Fatalf("PolyFit: %v", err)
	}
	for i := range x {
		if math.Abs(p.Eval(x[i])-y[i]) > 1e-6 {
			t.Fatalf("Eval(%v) = %v, want %v", x[i], p.Eval(x[i]), y[i])
		}
	}
}

func TestPolyFit_TooFewPoints(t *testing.T) {
	_, err := PolyFit([]float64{1, 2}, []float64{1, math.NaN()}, 1)
	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("err = %v, want ErrTooFewPoints", err)
	}
}

func TestLinspace(t *testing.T) {
	xs := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if !approx(xs[i], want[i]) {
			t.Errorf("xs[%d] = %v, want %v", i, xs[i], want[i])
		}
	}
	if got := Linspace(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Linspace n=1 = %v", got)
	}
}
