package forecast

import (
	"fmt"
	"time"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/stats"
)

// Result is the output of a full pipeline run.
type Result struct {
	Options   Options       `json:"options"`
	History   int           `json:"history_rows"`
	InSample  []Point       `json:"-"`
	Points    []Point       `json:"forecast"`
	Residuals []Residual    `json:"residuals"`
	Summary   stats.Summary `json:"summary"`
	Phase     SolarPhase    `json:"phase"`
}

// Future returns the predictions past the last history date.
func (r *Result) Future() []Point {
	if r.History >= len(r.Points) {
		return nil
	}
	return r.Points[r.History:]
}

// Run fits the model on the full table, predicts over history plus the
// configured horizon, and summarizes residuals. There is no hold-out, so
// the residuals are in-sample.
func Run(t *dataset.Table, opts Options) (*Result, error) {
	m, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := m.Fit(t); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	history := m.History()
	inSample, err := m.Predict(history)
	if err != nil {
		return nil, fmt.Errorf("predict history: %w", err)
	}

	dates, err := m.FutureDates(opts.Horizon)
	if err != nil {
		return nil, fmt.Errorf("future dates: %w", err)
	}
	points, err := m.Predict(dates)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	actual, _ := t.Column(dataset.ValueColumn)
	residuals := Join(t.Dates(), actual, points)

	return &Result{
		Options:   opts,
		History:   len(history),
		InSample:  inSample,
		Points:    points,
		Residuals: residuals,
		Summary:   Summarize(residuals),
		Phase:     PhaseAt(points, time.Now()),
	}, nil
}
