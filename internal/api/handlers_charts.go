package api

import (
	"bytes"
	"io"
	"log"
	"net/http"

	"github.com/lox/sunspots/internal/charts"
	"github.com/lox/sunspots/internal/export"
	"github.com/lox/sunspots/internal/forecast"
)

func (s *Server) handleDescribeChart(w http.ResponseWriter, r *http.Request) {
	p := parseDashboardParams(r.URL.Query())
	views, warning, err := s.describeViews(r.Context(), p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if warning != nil {
		writeJSON(w, http.StatusNotFound, warning)
		return
	}

	var buf bytes.Buffer
	if err := charts.Descriptive(&buf, views); err != nil {
		log.Printf("api: render describe chart: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	servePNG(w, buf.Bytes())
}

func (s *Server) handleForecastChart(w http.ResponseWriter, r *http.Request) {
	s.serveForecastChart(w, r, "forecast", charts.Forecast)
}

func (s *Server) handleComponentsChart(w http.ResponseWriter, r *http.Request) {
	s.serveForecastChart(w, r, "components", charts.Components)
}

func (s *Server) handleResidualsChart(w http.ResponseWriter, r *http.Request) {
	s.serveForecastChart(w, r, "residuals", charts.Residuals)
}

func (s *Server) serveForecastChart(w http.ResponseWriter, r *http.Request, name string, render func(io.Writer, *forecast.Result) error) {
	res, _, err := s.forecastResult(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, res); err != nil {
		log.Printf("api: render %s chart: %v", name, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	servePNG(w, buf.Bytes())
}

func (s *Server) handleExportResiduals(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.forecastResult(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, res); err != nil {
		log.Printf("api: export residuals: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="residuals.xlsx"`)
	buf.WriteTo(w)
}

func servePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
