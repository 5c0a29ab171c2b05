package models

import (
	"database/sql"
	"time"
)

// Observation is a single yearly activity reading.
type Observation struct {
	Year     int
	Date     time.Time
	Activity sql.NullFloat64
}

// ForecastRun is a recorded execution of the forecast pipeline.
type ForecastRun struct {
	ID                    int64
	Source                string // dataset path or URL
	CreatedAt             time.Time
	Period                float64
	FourierOrder          int
	ChangepointPriorScale float64
	Horizon               int
	HistoryRows           int
	ForecastRows          int
	ResidualCount         int
	ResidualMean          sql.NullFloat64
	ResidualStd           sql.NullFloat64
	ResidualMin           sql.NullFloat64
	ResidualQ1            sql.NullFloat64
	ResidualMedian        sql.NullFloat64
	ResidualQ3            sql.NullFloat64
	ResidualMax           sql.NullFloat64
	Phase                 string
	SnapshotID            sql.NullInt64
}

// ForecastRunPoint is one predicted date within a recorded run.
type ForecastRunPoint struct {
	RunID  int64
	Date   time.Time
	Yhat   float64
	Lower  float64
	Upper  float64
	Actual sql.NullFloat64
}
