package api

import (
	"database/sql"
	"embed"
	"html/template"
	"math"
	"strconv"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates creates and parses the HTML templates with custom functions.
func newTemplates() *template.Template {
	funcs := template.FuncMap{
		"fmtf": func(f float64) string {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return "-"
			}
			return strconv.FormatFloat(f, 'f', 2, 64)
		},
		"nullf": func(f sql.NullFloat64) string {
			if !f.Valid {
				return "-"
			}
			return strconv.FormatFloat(f.Float64, 'f', 2, 64)
		},
		"year": func(t time.Time) int { return t.Year() },
		"datetime": func(t time.Time) string {
			return t.UTC().Format("2006-01-02 15:04 UTC")
		},
		"pct": func(f float64) string {
			return strconv.FormatFloat(f*100, 'f', 0, 64) + "%"
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
