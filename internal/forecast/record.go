package forecast

import (
	"database/sql"
	"math"
	"time"

	"github.com/lox/sunspots/internal/models"
)

// Record flattens a result into the rows the run history stores.
func (r *Result) Record(source string, createdAt time.Time) (models.ForecastRun, []models.ForecastRunPoint) {
	run := models.ForecastRun{
		Source:                source,
		CreatedAt:             createdAt,
		ChangepointPriorScale: r.Options.ChangepointPriorScale,
		Horizon:               r.Options.Horizon,
		HistoryRows:           r.History,
		ForecastRows:          len(r.Points),
		ResidualCount:         r.Summary.Count,
		ResidualMean:          nullFloat(r.Summary.Mean),
		ResidualStd:           nullFloat(r.Summary.Std),
		ResidualMin:           nullFloat(r.Summary.Min),
		ResidualQ1:            nullFloat(r.Summary.Q1),
		ResidualMedian:        nullFloat(r.Summary.Median),
		ResidualQ3:            nullFloat(r.Summary.Q3),
		ResidualMax:           nullFloat(r.Summary.Max),
		Phase:                 string(r.Phase),
	}
	if seas := r.Options.Seasonalities; len(seas) > 0 {
		run.Period = seas[0].Period
		run.FourierOrder = seas[0].FourierOrder
	}

	actual := make(map[int64]float64, len(r.Residuals))
	for _, res := range r.Residuals {
		actual[res.Date.Unix()] = res.Actual
	}
	points := make([]models.ForecastRunPoint, len(r.Points))
	for i, p := range r.Points {
		points[i] = models.ForecastRunPoint{
			Date:  p.Date,
			Yhat:  p.Yhat,
			Lower: p.Lower,
			Upper: p.Upper,
		}
		if v, ok := actual[p.Date.Unix()]; ok {
			points[i].Actual = sql.NullFloat64{Float64: v, Valid: true}
		}
	}
	return run, points
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
