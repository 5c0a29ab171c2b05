package api

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/models"
)

var errHistoryDisabled = errors.New("run history is disabled (no database configured)")

func (s *Server) handleAPIDescribe(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, views)
}

// ObservationJSON is one row of the filtered table; Activity is null when
// missing.
type ObservationJSON struct {
	Year     int      `json:"year"`
	Activity *float64 `json:"activity"`
}

func (s *Server) handleAPIObservations(w http.ResponseWriter, r *http.Request) {
	p := parseDashboardParams(r.URL.Query())
	t, err := s.datasets.Get(r.Context(), s.cfg.DataPath)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	obs, err := t.Filter(p.Config.YearMin, p.Config.YearMax).Observations(p.Column)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	out := make([]ObservationJSON, len(obs))
	for i, o := range obs {
		out[i].Year = o.Year
		if o.Activity.Valid {
			v := o.Activity.Float64
			out[i].Activity = &v
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIForecast(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.forecastResult(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SummaryResponse is the residual summary in display order.
type SummaryResponse struct {
	Rows  []SummaryRowJSON `json:"rows"`
	Phase string           `json:"phase"`
}

// SummaryRowJSON is one labelled statistic; Value is null when undefined.
type SummaryRowJSON struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

func (s *Server) handleAPIForecastSummary(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.forecastResult(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := SummaryResponse{Phase: string(res.Phase)}
	for _, row := range res.Summary.Rows() {
		out := SummaryRowJSON{Label: row.Label}
		if row.Valid() {
			v := row.Value
			out.Value = &v
		}
		resp.Rows = append(resp.Rows, out)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIRecordRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, Panel{Message: errHistoryDisabled.Error()})
		return
	}

	res, t, err := s.forecastResult(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var snapshot bytes.Buffer
	if err := dataset.WriteCSV(&snapshot, t); err != nil {
		log.Printf("api: snapshot dataset: %v", err)
		snapshot.Reset()
	}

	run, points := res.Record(s.cfg.ForecastPath, time.Now())
	id, err := s.store.RecordForecastRun(run, points, snapshot.Bytes(), t.Len())
	if err != nil {
		log.Printf("api: record run: %v", err)
		writeJSON(w, http.StatusInternalServerError, Panel{Message: "Could not record run: " + err.Error()})
		return
	}
	log.Printf("api: recorded forecast run %d (%d points)", id, len(points))

	if r.FormValue("redirect") != "" {
		http.Redirect(w, r, fmt.Sprintf("/forecast?recorded=%d", id), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "points": len(points)})
}

func (s *Server) handleAPIListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, Panel{Message: errHistoryDisabled.Error()})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListForecastRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.ForecastRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// RunDetail is a stored run with its points.
type RunDetail struct {
	Run    *models.ForecastRun       `json:"run"`
	Points []models.ForecastRunPoint `json:"points"`
}

func (s *Server) handleAPIGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, Panel{Message: errHistoryDisabled.Error()})
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	run, err := s.store.GetForecastRun(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.NotFound(w, r)
		return
	}
	points, err := s.store.GetForecastRunPoints(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, RunDetail{Run: run, Points: points})
}
