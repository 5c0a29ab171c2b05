package imagegen

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/sunspots/internal/forecast"
)

// Cache provides file-based caching for generated banner images.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates an image cache in dir. Images are regenerated after
// maxAge; zero means a week.
func NewCache(dir string, maxAge time.Duration) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("imagegen: could not create cache directory: %v", err)
	}
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &Cache{dir: dir, maxAge: maxAge}
}

func (c *Cache) path(phase forecast.SolarPhase) string {
	return filepath.Join(c.dir, fmt.Sprintf("banner_%s.png", phase))
}

// Get returns a cached image if it exists and is not stale.
func (c *Cache) Get(phase forecast.SolarPhase) ([]byte, bool) {
	path := c.path(phase)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores an image in the cache.
func (c *Cache) Set(phase forecast.SolarPhase, data []byte) error {
	return os.WriteFile(c.path(phase), data, 0644)
}

// GetAny returns any cached image, stale or not, as a fallback.
func (c *Cache) GetAny() ([]byte, bool) {
	for _, phase := range c.List() {
		if data, err := os.ReadFile(c.path(phase)); err == nil {
			return data, true
		}
	}
	return nil, false
}

// List returns the phases that have a cached image.
func (c *Cache) List() []forecast.SolarPhase {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}

	var phases []forecast.SolarPhase
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "banner_") || filepath.Ext(name) != ".png" {
			continue
		}
		phase := forecast.SolarPhase(strings.TrimSuffix(strings.TrimPrefix(name, "banner_"), ".png"))
		if phase.Valid() {
			phases = append(phases, phase)
		}
	}
	return phases
}
