package api

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/forecast"
	"github.com/lox/sunspots/internal/imagegen"
	"github.com/lox/sunspots/internal/store"
)

// BannerGenerator produces a header image for a cycle phase.
type BannerGenerator interface {
	Generate(ctx context.Context, phase forecast.SolarPhase) ([]byte, error)
}

// Config holds the server settings.
type Config struct {
	Port         string
	DataPath     string // descriptive dataset (YEAR, SUNACTIVITY)
	ForecastPath string // forecast dataset (ds, y)
	ImageDir     string
	Forecast     forecast.Options
	Generator    BannerGenerator // optional
}

type Server struct {
	store        *store.Store // optional, enables run history
	cfg          Config
	datasets     *dataset.Cache
	tmpl         *template.Template
	imageCache   *imagegen.Cache
	ogImageCache *imagegen.OGImageCache
	imageGen     BannerGenerator
	genMu        sync.Mutex // prevents concurrent generation of the same banner
}

func NewServer(st *store.Store, cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ImageDir == "" {
		cfg.ImageDir = "data/images"
	}
	if cfg.Forecast.Seasonalities == nil {
		cfg.Forecast = forecast.DefaultOptions()
	}
	if cfg.Generator == nil {
		log.Printf("imagegen: banner generation disabled")
	}

	return &Server{
		store:        st,
		cfg:          cfg,
		datasets:     dataset.NewCache(),
		tmpl:         newTemplates(),
		imageCache:   imagegen.NewCache(cfg.ImageDir, 0),
		ogImageCache: imagegen.NewOGImageCache(10 * time.Minute),
		imageGen:     cfg.Generator,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/forecast", s.handleForecastPage)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/banner", s.handleBanner)
	mux.HandleFunc("/og-image", s.handleOGImage)
	mux.HandleFunc("/charts/describe.png", s.handleDescribeChart)
	mux.HandleFunc("/charts/forecast.png", s.handleForecastChart)
	mux.HandleFunc("/charts/components.png", s.handleComponentsChart)
	mux.HandleFunc("/charts/residuals.png", s.handleResidualsChart)
	mux.HandleFunc("/export/residuals.xlsx", s.handleExportResiduals)
	mux.HandleFunc("/api/describe", s.handleAPIDescribe)
	mux.HandleFunc("/api/observations", s.handleAPIObservations)
	mux.HandleFunc("/api/forecast", s.handleAPIForecast)
	mux.HandleFunc("/api/forecast/summary", s.handleAPIForecastSummary)
	mux.HandleFunc("GET /api/forecast/runs", s.handleAPIListRuns)
	mux.HandleFunc("POST /api/forecast/runs", s.handleAPIRecordRun)
	mux.HandleFunc("GET /api/forecast/runs/{id}", s.handleAPIGetRun)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.cfg.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":   "ok",
		"datasets": s.datasets.Len(),
		"history":  s.store != nil,
		"banner":   s.imageGen != nil,
	}
	if s.store != nil {
		if v, err := s.store.MigrationVersion(); err == nil {
			status["schema_version"] = v
		}
	}
	writeJSON(w, http.StatusOK, status)
}
