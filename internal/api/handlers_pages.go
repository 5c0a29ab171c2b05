package api

import (
	"bytes"
	"html/template"
	"log"
	"net/http"

	"github.com/lox/sunspots/internal/describe"
	"github.com/lox/sunspots/internal/forecast"
	"github.com/lox/sunspots/internal/models"
	"github.com/lox/sunspots/internal/stats"
)

// IndexData is the descriptive dashboard view model.
type IndexData struct {
	Params  DashboardParams
	Sliders []Slider
	Query   template.URL
	Views   *describe.Views
	BoxRows []stats.SummaryRow
	Warning *Panel
	Error   *Panel
	Palette Palette
}

// ForecastData is the forecast page view model.
type ForecastData struct {
	Result         *forecast.Result
	SummaryRows    []stats.SummaryRow
	Future         []forecast.Point
	Palette        Palette
	Error          *Panel
	HistoryEnabled bool
	Recorded       string
}

// HistoryData is the run history view model.
type HistoryData struct {
	Enabled bool
	Runs    []models.ForecastRun
	Error   *Panel
	Palette Palette
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	p := parseDashboardParams(r.URL.Query())
	data := IndexData{
		Params:  p,
		Sliders: p.Sliders(),
		Query:   template.URL(p.Query()),
		Palette: DefaultPalette,
	}

	views, warning, err := s.describeViews(r.Context(), p)
	switch {
	case err != nil:
		log.Printf("api: describe %s: %v", p, err)
		data.Error = errorPanel(err)
	case warning != nil:
		data.Warning = warning
	default:
		data.Views = views
		if views.Box != nil {
			data.BoxRows = views.Box.Summary.Rows()
		}
	}

	s.render(w, "index.html", data)
}

func (s *Server) handleForecastPage(w http.ResponseWriter, r *http.Request) {
	data := ForecastData{
		Palette:        DefaultPalette,
		HistoryEnabled: s.store != nil,
		Recorded:       r.URL.Query().Get("recorded"),
	}

	res, _, err := s.forecastResult(r.Context())
	if err != nil {
		log.Printf("api: forecast: %v", err)
		data.Error = errorPanel(err)
	} else {
		data.Result = res
		data.SummaryRows = res.Summary.Rows()
		data.Future = res.Future()
		data.Palette = PaletteFor(res.Phase)
	}

	s.render(w, "forecast.html", data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	data := HistoryData{Enabled: s.store != nil, Palette: DefaultPalette}
	if s.store != nil {
		runs, err := s.store.ListForecastRuns(100)
		if err != nil {
			log.Printf("api: list runs: %v", err)
			data.Error = &Panel{Message: "Could not read run history: " + err.Error()}
		}
		data.Runs = runs
	}
	s.render(w, "history.html", data)
}

// render executes into a buffer so a template error never leaves a half
// written page.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("template error: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
