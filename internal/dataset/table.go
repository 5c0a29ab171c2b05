// Package dataset loads yearly activity tables and keeps them immutable.
package dataset

import (
	"database/sql"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/lox/sunspots/internal/models"
)

const (
	// YearColumn is the year-like column of the descriptive dataset.
	YearColumn = "YEAR"
	// ActivityColumn is the default activity column of the descriptive dataset.
	ActivityColumn = "SUNACTIVITY"
	// DateColumn and ValueColumn are the forecast dataset columns.
	DateColumn  = "ds"
	ValueColumn = "y"
)

// Table is an ordered, immutable set of rows. Numeric columns hold NaN for
// missing values. Years and dates are nil when the source had no year-like
// column.
type Table struct {
	names   []string
	columns map[string][]float64
	years   []int
	dates   []time.Time
	rows    int
}

// NewTable builds a table from named numeric columns and optional years.
// Dates are derived as January 1 of each year.
func NewTable(names []string, columns map[string][]float64, years []int) (*Table, error) {
	rows := -1
	for _, name := range names {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q has no values", name)
		}
		if rows >= 0 && len(col) != rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", name, len(col), rows)
		}
		rows = len(col)
	}
	if years != nil {
		if rows >= 0 && len(years) != rows {
			return nil, fmt.Errorf("year index has %d rows, want %d", len(years), rows)
		}
		rows = len(years)
	}
	if rows < 0 {
		rows = 0
	}

	t := &Table{
		names:   slices.Clone(names),
		columns: make(map[string][]float64, len(names)),
		rows:    rows,
	}
	for _, name := range names {
		t.columns[name] = slices.Clone(columns[name])
	}
	if years != nil {
		t.years = slices.Clone(years)
		t.dates = make([]time.Time, len(years))
		for i, y := range years {
			t.dates[i] = YearDate(y)
		}
	}
	return t, nil
}

// newDatedTable builds a table indexed by explicit dates.
func newDatedTable(names []string, columns map[string][]float64, dates []time.Time) (*Table, error) {
	years := make([]int, len(dates))
	for i, d := range dates {
		years[i] = d.Year()
	}
	t, err := NewTable(names, columns, years)
	if err != nil {
		return nil, err
	}
	for i, d := range dates {
		t.dates[i] = d.UTC()
	}
	return t, nil
}

// YearDate returns the calendar date used to index a year.
func YearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return t.rows == 0 }

// Columns returns the numeric column names in source order.
func (t *Table) Columns() []string { return slices.Clone(t.names) }

// HasColumn reports whether a numeric column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Indexed reports whether rows carry a year and date index.
func (t *Table) Indexed() bool { return t.years != nil }

// Column returns a copy of a numeric column.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(col), true
}

// Years returns a copy of the year index, or nil.
func (t *Table) Years() []int { return slices.Clone(t.years) }

// Dates returns a copy of the date index, or nil.
func (t *Table) Dates() []time.Time { return slices.Clone(t.dates) }

// Filter returns the rows whose year lies in [from, to] inclusive.
// Unindexed tables are returned unchanged.
func (t *Table) Filter(from, to int) *Table {
	if !t.Indexed() {
		return t
	}
	return t.selectRows(func(i int) bool {
		return t.years[i] >= from && t.years[i] <= to
	})
}

// DropNA returns the rows where column is present.
func (t *Table) DropNA(column string) *Table {
	col, ok := t.columns[column]
	if !ok {
		return t
	}
	return t.selectRows(func(i int) bool { return !math.IsNaN(col[i]) })
}

// Observations returns one observation per row for column.
func (t *Table) Observations(column string) ([]models.Observation, error) {
	col, ok := t.columns[column]
	if !ok {
		return nil, fmt.Errorf("column %q not found", column)
	}
	if !t.Indexed() {
		return nil, fmt.Errorf("table has no %s column", YearColumn)
	}
	obs := make([]models.Observation, t.rows)
	for i := range obs {
		obs[i] = models.Observation{Year: t.years[i], Date: t.dates[i]}
		if !math.IsNaN(col[i]) {
			obs[i].Activity = sql.NullFloat64{Float64: col[i], Valid: true}
		}
	}
	return obs, nil
}

func (t *Table) selectRows(keep func(i int) bool) *Table {
	var idx []int
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}

	out := &Table{
		names:   t.names,
		columns: make(map[string][]float64, len(t.names)),
		rows:    len(idx),
	}
	for _, name := range t.names {
		src := t.columns[name]
		dst := make([]float64, len(idx))
		for j, i := range idx {
			dst[j] = src[i]
		}
		out.columns[name] = dst
	}
	if t.years != nil {
		out.years = make([]int, len(idx))
		out.dates = make([]time.Time, len(idx))
		for j, i := range idx {
			out.years[j] = t.years[i]
			out.dates[j] = t.dates[i]
		}
	}
	return out
}
