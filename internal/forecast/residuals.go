package forecast

import (
	"math"
	"time"

	"github.com/lox/sunspots/internal/stats"
)

// Residual is an observed value joined to its prediction.
type Residual struct {
	Date      time.Time `json:"ds"`
	Actual    float64   `json:"y"`
	Predicted float64   `json:"yhat"`
	Residual  float64   `json:"residual"`
}

// Join inner-joins observations to predictions on date and computes
// actual - predicted. Dates without a prediction, predictions without an
// observation and missing actuals are all dropped. Order follows dates.
func Join(dates []time.Time, actual []float64, points []Point) []Residual {
	byDate := make(map[int64]Point, len(points))
	for _, p := range points {
		byDate[p.Date.Unix()] = p
	}

	var out []Residual
	for i, d := range dates {
		if i >= len(actual) || math.IsNaN(actual[i]) {
			continue
		}
		p, ok := byDate[d.Unix()]
		if !ok {
			continue
		}
		out = append(out, Residual{
			Date:      d,
			Actual:    actual[i],
			Predicted: p.Yhat,
			Residual:  actual[i] - p.Yhat,
		})
	}
	return out
}

// Summarize describes the residual column.
func Summarize(rs []Residual) stats.Summary {
	vals := make([]float64, len(rs))
	for i, r := range rs {
		vals[i] = r.Residual
	}
	return stats.Describe(vals)
}
