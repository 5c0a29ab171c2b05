package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ProphetFrame derives a ds/y table from a year-indexed table. Rows with a
// missing value are kept so the frame lines up with the source years.
func ProphetFrame(t *Table, column string) (*Table, error) {
	if !t.Indexed() {
		return nil, fmt.Errorf("table has no %s column", YearColumn)
	}
	values, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("column %q not found", column)
	}
	return newDatedTable([]string{ValueColumn}, map[string][]float64{ValueColumn: values}, t.Dates())
}

// WriteCSV writes a dated table as ds,<columns...>. Missing values are
// written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {
	if !t.Indexed() {
		return fmt.Errorf("table has no date index")
	}
	bw := bufio.NewWriter(w)

	bw.WriteString(DateColumn)
	for _, name := range t.names {
		bw.WriteString(",")
		bw.WriteString(name)
	}
	bw.WriteString("\n")

	for i := 0; i < t.rows; i++ {
		bw.WriteString(t.dates[i].Format("2006-01-02"))
		for _, name := range t.names {
			bw.WriteString(",")
			if v := t.columns[name][i]; !math.IsNaN(v) {
				bw.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
