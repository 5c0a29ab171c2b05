package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/lox/sunspots/internal/forecast"
	"github.com/lox/sunspots/internal/imagegen"
)

// currentPhase returns the cycle phase for the current year, or unknown
// when the forecast cannot be produced.
func (s *Server) currentPhase(ctx context.Context) (forecast.SolarPhase, *forecast.Result) {
	res, _, err := s.forecastResult(ctx)
	if err != nil {
		log.Printf("api: phase unavailable: %v", err)
		return forecast.PhaseUnknown, nil
	}
	return res.Phase, res
}

// handleBanner serves a phase-appropriate header image. It checks the cache
// first and generates on demand when a generator is configured.
// Supports ?phase=maximum as an override.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	phase := forecast.SolarPhase(r.URL.Query().Get("phase"))
	hasOverride := phase.Valid()
	if !hasOverride {
		phase, _ = s.currentPhase(r.Context())
	}

	if data, ok := s.imageCache.Get(phase); ok {
		s.serveBannerImage(w, data)
		return
	}

	if !hasOverride {
		if data, ok := s.imageCache.GetAny(); ok {
			go s.generateAndCache(phase)
			s.serveBannerImage(w, data)
			return
		}
	}

	if s.imageGen != nil && phase.Valid() {
		s.genMu.Lock()
		defer s.genMu.Unlock()

		if data, ok := s.imageCache.Get(phase); ok {
			s.serveBannerImage(w, data)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		data, err := s.imageGen.Generate(ctx, phase)
		if err != nil {
			log.Printf("banner: generation failed: %v", err)
			http.Error(w, "Image generation failed", http.StatusServiceUnavailable)
			return
		}
		if err := s.imageCache.Set(phase, data); err != nil {
			log.Printf("banner: failed to cache: %v", err)
		}
		s.serveBannerImage(w, data)
		return
	}

	log.Printf("banner: no generator and no cached images available")
	http.Error(w, "Banner image unavailable", http.StatusServiceUnavailable)
}

func (s *Server) serveBannerImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (s *Server) generateAndCache(phase forecast.SolarPhase) {
	if s.imageGen == nil || !phase.Valid() {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if _, ok := s.imageCache.Get(phase); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	data, err := s.imageGen.Generate(ctx, phase)
	if err != nil {
		log.Printf("banner: background generation failed: %v", err)
		return
	}
	if err := s.imageCache.Set(phase, data); err != nil {
		log.Printf("banner: failed to cache: %v", err)
		return
	}
	log.Printf("banner: cached %s", phase)
}

// handleOGImage serves the Open Graph card: the banner with the predicted
// activity for this year and the cycle phase.
func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.ogImageCache.Get(); ok {
		serveOG(w, data)
		return
	}

	now := time.Now()
	phase, res := s.currentPhase(r.Context())
	ogData := imagegen.OGImageData{Year: now.Year(), Phase: phase}
	if res != nil {
		if p, ok := pointForYear(res.Points, now.Year()); ok {
			ogData.Activity = p.Yhat
		}
	}

	var (
		ogImage []byte
		err     error
	)
	if banner, ok := s.imageCache.Get(phase); ok {
		ogImage, err = imagegen.GenerateOGImage(banner, ogData)
	} else if banner, ok := s.imageCache.GetAny(); ok {
		ogImage, err = imagegen.GenerateOGImage(banner, ogData)
	} else {
		ogImage, err = imagegen.GenerateFallbackOGImage(ogData)
	}
	if err != nil {
		log.Printf("og-image: failed to generate: %v", err)
		http.Error(w, "Failed to generate OG image", http.StatusInternalServerError)
		return
	}

	s.ogImageCache.Set(ogImage)
	serveOG(w, ogImage)
}

func serveOG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

func pointForYear(points []forecast.Point, year int) (forecast.Point, bool) {
	for _, p := range points {
		if p.Date.Year() == year {
			return p, true
		}
	}
	return forecast.Point{}, false
}
