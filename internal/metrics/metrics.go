package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunspots_dataset_loads_total",
			Help: "Total dataset loads by source kind and outcome",
		},
		[]string{"kind", "status"},
	)

	DatasetCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunspots_dataset_cache_lookups_total",
			Help: "Dataset cache lookups by result",
		},
		[]string{"result"},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunspots_renders_total",
			Help: "Total dashboard renders by view and outcome",
		},
		[]string{"view", "status"},
	)

	RenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sunspots_render_latency_seconds",
			Help:    "Render latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	ForecastFitLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sunspots_forecast_fit_seconds",
			Help:    "Forecast model fit latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForecastFits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sunspots_forecast_fits_total",
			Help: "Total forecast model fits by outcome",
		},
		[]string{"status"},
	)
)
