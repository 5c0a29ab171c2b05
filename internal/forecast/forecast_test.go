package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/lox/sunspots/internal/dataset"
)

func prophetTable(t *testing.T, from, to int, f func(year int) string) *dataset.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("ds,y\n")
	for y := from; y <= to; y++ {
		fmt.Fprintf(&b, "%d-01-01,%s\n", y, f(y))
	}
	tbl, err := dataset.Parse(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tbl
}

func linear(year int) string {
	return fmt.Sprintf("%g", 2*float64(year-2000)+50)
}

func cyclical(year int) string {
	v := 80 + 0.1*float64(year-1700) + 60*math.Sin(2*math.Pi*float64(year)/11)
	return fmt.Sprintf("%.6f", v)
}

func TestRun_LinearTenYears(t *testing.T) {
	tbl := prophetTable(t, 2000, 2009, linear)

	res, err := Run(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.History != 10 {
		t.Errorf("History = %d, want 10", res.History)
	}
	if len(res.Points) != 40 {
		t.Fatalf("len(Points) = %d, want 40", len(res.Points))
	}
	if len(res.Future()) != 30 {
		t.Errorf("len(Future) = %d, want 30", len(res.Future()))
	}
	if len(res.InSample) != 10 {
		t.Errorf("len(InSample) = %d, want 10", len(res.InSample))
	}
	if len(res.Residuals) != 10 {
		t.Errorf("len(Residuals) = %d, want 10", len(res.Residuals))
	}
	if res.Summary.Count != 10 {
		t.Errorf("Summary.Count = %d, want 10", res.Summary.Count)
	}
	if math.Abs(res.Summary.Mean) > 1e-6 || math.Abs(res.Summary.Max) > 1e-6 {
		t.Errorf("linear data should fit exactly, summary %+v", res.Summary)
	}

	last := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range res.Residuals {
		if r.Date.After(last) {
			t.Errorf("residual for future date %s", r.Date.Format("2006-01-02"))
		}
	}
	if got := res.Points[39].Date.Year(); got != 2039 {
		t.Errorf("last forecast year = %d, want 2039", got)
	}
	if got := res.Points[39].Yhat; math.Abs(got-128) > 1e-4 {
		t.Errorf("extrapolated 2039 = %v, want 128", got)
	}
}

func TestRun_RecoversCycle(t *testing.T) {
	tbl := prophetTable(t, 1700, 1900, cyclical)

	res, err := Run(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var ss float64
	for _, r := range res.Residuals {
		ss += r.Residual * r.Residual
	}
	if rms := math.Sqrt(ss / float64(len(res.Residuals))); rms > 1 {
		t.Errorf("in-sample RMS = %v, want < 1", rms)
	}

	var cycleRange [2]float64
	for _, p := range res.InSample {
		cycleRange[0] = math.Min(cycleRange[0], p.Cycle)
		cycleRange[1] = math.Max(cycleRange[1], p.Cycle)
	}
	if amp := (cycleRange[1] - cycleRange[0]) / 2; math.Abs(amp-60) > 3 {
		t.Errorf("cycle amplitude = %v, want ~60", amp)
	}
}

func TestPredict_IntervalsWidenIntoFuture(t *testing.T) {
	tbl := prophetTable(t, 1700, 1900, func(year int) string {
		v := 80 + 60*math.Sin(2*math.Pi*float64(year)/11)
		if year > 1800 {
			v += 0.5 * float64(year-1800)
		}
		v += 5 * math.Sin(float64(year)*1.7)
		return fmt.Sprintf("%.6f", v)
	})

	res, err := Run(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, p := range res.Points {
		if !(p.Lower <= p.Yhat && p.Yhat <= p.Upper) {
			t.Fatalf("interval does not contain yhat at %s: %+v", p.Date.Format("2006"), p)
		}
	}

	future := res.Future()
	prev := 0.0
	for i, p := range future {
		w := p.Upper - p.Lower
		if w+1e-9 < prev {
			t.Fatalf("interval narrowed at step %d: %v < %v", i, w, prev)
		}
		prev = w
	}
	histWidth := res.InSample[0].Upper - res.InSample[0].Lower
	if futureWidth := future[len(future)-1].Upper - future[len(future)-1].Lower; futureWidth <= histWidth {
		t.Errorf("future width %v should exceed history width %v", futureWidth, histWidth)
	}
}

func TestRun_MissingValuesIgnoredInFit(t *testing.T) {
	tbl := prophetTable(t, 2000, 2011, func(year int) string {
		if year == 2005 {
			return ""
		}
		return linear(year)
	})

	res, err := Run(tbl, DefaultOptions())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.History != 12 {
		t.Errorf("History = %d, want 12 (missing row keeps its date)", res.History)
	}
	if len(res.Residuals) != 11 {
		t.Errorf("len(Residuals) = %d, want 11", len(res.Residuals))
	}
}

func TestRun_Errors(t *testing.T) {
	wrongColumns, err := dataset.Parse(strings.NewReader("YEAR,SUNACTIVITY\n1700,1\n1701,2\n"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		table   *dataset.Table
		wantErr error
	}{
		{"missing columns", wrongColumns, ErrMissingColumns},
		{"single row", prophetTable(t, 2000, 2000, linear), ErrFitFailed},
		{"all missing", prophetTable(t, 2000, 2003, func(int) string { return "NaN" }), ErrFitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(tt.table, DefaultOptions())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.IntervalWidth = 1.5
	opts.Seasonalities = []Seasonality{{Name: "bad", Period: 0, FourierOrder: 3}}

	_, err := New(opts)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"interval_width", "bad"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestModel_NotFitted(t *testing.T) {
	m, err := New(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Predict(nil); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Predict err = %v, want ErrNotFitted", err)
	}
	if _, err := m.FutureDates(3); !errors.Is(err, ErrNotFitted) {
		t.Errorf("FutureDates err = %v, want ErrNotFitted", err)
	}
}

func TestChangepoints(t *testing.T) {
	s := make([]float64, 10)
	for i := range s {
		s[i] = float64(i) / 9
	}

	cps := changepoints(s, 25, 0.8)
	if len(cps) != 7 {
		t.Fatalf("len(cps) = %d, want 7", len(cps))
	}
	for _, c := range cps {
		if c <= 0 || c > 0.8 {
			t.Errorf("changepoint %v outside (0, 0.8]", c)
		}
	}
	if got := changepoints(s[:2], 25, 0.8); got != nil {
		t.Errorf("expected no changepoints for 2 points, got %v", got)
	}
}

func TestJoin_PerfectFit(t *testing.T) {
	var dates []time.Time
	var actual []float64
	var points []Point
	for y := 1900; y < 1950; y++ {
		d := dataset.YearDate(y)
		v := 3.3*float64(y%11) + 0.1
		dates = append(dates, d)
		actual = append(actual, v)
		points = append(points, Point{Date: d, Yhat: v})
	}

	rs := Join(dates, actual, points)
	s := Summarize(rs)
	if s.Count != 50 {
		t.Errorf("Count = %d, want 50", s.Count)
	}
	if s.Mean != 0 || s.Std != 0 {
		t.Errorf("mean = %v, std = %v, want exactly 0", s.Mean, s.Std)
	}
}

func TestJoin_InnerSemantics(t *testing.T) {
	dates := []time.Time{dataset.YearDate(2000), dataset.YearDate(2001), dataset.YearDate(2002)}
	actual := []float64{10, math.NaN(), 30}
	points := []Point{
		{Date: dataset.YearDate(2000), Yhat: 8},
		{Date: dataset.YearDate(2001), Yhat: 20},
		{Date: dataset.YearDate(2003), Yhat: 40},
	}

	rs := Join(dates, actual, points)
	if len(rs) != 1 {
		t.Fatalf("len = %d, want 1 (2001 missing actual, 2002 no prediction, 2003 future)", len(rs))
	}
	if rs[0].Residual != 2 || rs[0].Actual != 10 || rs[0].Predicted != 8 {
		t.Errorf("residual = %+v", rs[0])
	}
}

func TestPhaseAt(t *testing.T) {
	var points []Point
	for y := 2000; y <= 2022; y++ {
		points = append(points, Point{
			Date:  dataset.YearDate(y),
			Cycle: math.Sin(2 * math.Pi * float64(y-2000) / 11),
		})
	}

	tests := []struct {
		year int
		want SolarPhase
	}{
		{2000, PhaseRising},
		{2003, PhaseMaximum},
		{2005, PhaseDeclining},
		{2008, PhaseMinimum},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.year), func(t *testing.T) {
			if got := PhaseAt(points, dataset.YearDate(tt.year)); got != tt.want {
				t.Errorf("PhaseAt(%d) = %s, want %s", tt.year, got, tt.want)
			}
		})
	}

	if got := PhaseAt(points[:2], time.Now()); got != PhaseUnknown {
		t.Errorf("short series phase = %s, want unknown", got)
	}
}

func TestDecimalYear(t *testing.T) {
	if got := decimalYear(dataset.YearDate(1900)); got != 1900 {
		t.Errorf("decimalYear(1900-01-01) = %v, want 1900", got)
	}
	mid := time.Date(2001, 7, 2, 12, 0, 0, 0, time.UTC)
	if got := decimalYear(mid); math.Abs(got-2001.5) > 1e-9 {
		t.Errorf("decimalYear(mid 2001) = %v, want 2001.5", got)
	}
}
