package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/describe"
	"github.com/lox/sunspots/internal/forecast"
)

// Panel is a user-facing error or warning box.
type Panel struct {
	Message string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

// describeViews loads the descriptive dataset and builds the views. A
// non-nil warning means the year range was empty; err is a load or build
// failure.
func (s *Server) describeViews(ctx context.Context, p DashboardParams) (views *describe.Views, warning *Panel, err error) {
	t, err := s.datasets.Get(ctx, s.cfg.DataPath)
	if err != nil {
		return nil, nil, err
	}
	views, err = describe.Build(t, p.Column, p.Config)
	if errors.Is(err, describe.ErrEmptyRange) {
		return nil, &Panel{Message: "No data in the selected year range."}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return views, nil, nil
}

// forecastResult loads the forecast dataset and runs the full pipeline.
func (s *Server) forecastResult(ctx context.Context) (*forecast.Result, *dataset.Table, error) {
	t, err := s.datasets.Get(ctx, s.cfg.ForecastPath)
	if err != nil {
		return nil, nil, err
	}
	res, err := forecast.Run(t, s.cfg.Forecast)
	if err != nil {
		return nil, nil, err
	}
	return res, t, nil
}

// errorPanel converts a pipeline error into what the page shows.
func errorPanel(err error) *Panel {
	var loadErr *dataset.LoadError
	switch {
	case errors.As(err, &loadErr):
		return &Panel{Message: "Could not load data: " + err.Error(), Hint: loadErr.Hint()}
	case errors.Is(err, forecast.ErrMissingColumns):
		return &Panel{Message: "Forecast failed: " + err.Error(), Hint: dataset.Hint}
	case errors.Is(err, forecast.ErrFitFailed):
		return &Panel{Message: "Forecast failed: " + err.Error()}
	default:
		return &Panel{Message: err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPanel(err))
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var loadErr *dataset.LoadError
	switch {
	case errors.As(err, &loadErr):
		return http.StatusInternalServerError
	case errors.Is(err, forecast.ErrMissingColumns), errors.Is(err, forecast.ErrFitFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
