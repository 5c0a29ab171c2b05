package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/lox/sunspots/internal/metrics"
)

// Hint is shown to users alongside load failures.
const Hint = "Check that the data file exists and has 'YEAR' and 'SUNACTIVITY' columns " +
	"(or 'ds' and 'y' columns for the forecast dataset)."

var (
	ErrNoNumericColumns = errors.New("no numeric columns")
	ErrBadYear          = errors.New("malformed year value")
	ErrBadDate          = errors.New("malformed date value")
)

// LoadError reports a dataset that could not be read or understood.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Hint returns guidance about the expected file layout.
func (e *LoadError) Hint() string { return Hint }

var missingTokens = map[string]bool{
	"":      true,
	"NA":    true,
	"NaN":   true,
	"nan":   true,
	"null":  true,
	"<nil>": true,
}

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006",
}

// Load reads a table from a local path, an http(s) URL or an ftp URL.
func Load(ctx context.Context, source string) (*Table, error) {
	start := time.Now()
	rc, err := open(ctx, source)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues(sourceKind(source), "error").Inc()
		return nil, &LoadError{Source: source, Err: err}
	}
	defer rc.Close()

	t, err := Parse(rc)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues(sourceKind(source), "error").Inc()
		return nil, &LoadError{Source: source, Err: err}
	}
	metrics.DatasetLoads.WithLabelValues(sourceKind(source), "ok").Inc()
	log.Printf("dataset: loaded %s (%d rows, %v)", source, t.Len(), time.Since(start).Round(time.Millisecond))
	return t, nil
}

// Parse reads a comma-separated table. A YEAR column becomes the year index;
// otherwise a ds column is parsed as dates. Columns that are not numeric are
// dropped.
func Parse(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	var (
		names   []string
		columns = make(map[string][]float64)
		years   []int
		dates   []time.Time
	)

	for _, name := range df.Names() {
		key := strings.TrimSpace(name)
		records := df.Col(name).Records()

		switch key {
		case YearColumn:
			ys, err := parseYears(records)
			if err != nil {
				return nil, err
			}
			years = ys
			continue
		case DateColumn:
			ds, err := parseDates(records)
			if err != nil {
				return nil, err
			}
			dates = ds
			continue
		}

		values, ok := parseFloats(records)
		if !ok {
			continue
		}
		names = append(names, key)
		columns[key] = values
	}

	if len(names) == 0 {
		return nil, ErrNoNumericColumns
	}

	switch {
	case years != nil:
		return NewTable(names, columns, years)
	case dates != nil:
		return newDatedTable(names, columns, dates)
	default:
		return NewTable(names, columns, nil)
	}
}

func parseFloats(records []string) ([]float64, bool) {
	values := make([]float64, len(records))
	for i, rec := range records {
		rec = strings.TrimSpace(rec)
		if missingTokens[rec] {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(rec, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func parseYears(records []string) ([]int, error) {
	years := make([]int, len(records))
	for i, rec := range records {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at row %d: %q", ErrBadYear, i+1, rec)
		}
		years[i] = int(v)
	}
	return years, nil
}

func parseDates(records []string) ([]time.Time, error) {
	dates := make([]time.Time, len(records))
	for i, rec := range records {
		d, err := parseDate(strings.TrimSpace(rec))
		if err != nil {
			return nil, fmt.Errorf("%w at row %d: %q", ErrBadDate, i+1, rec)
		}
		dates[i] = d
	}
	return dates, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateFormats {
		var d time.Time
		d, err = time.Parse(layout, s)
		if err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, err
}
