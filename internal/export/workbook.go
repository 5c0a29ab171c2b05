// Package export writes forecast results as spreadsheet workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lox/sunspots/internal/forecast"
)

const (
	SheetResiduals = "Residuals"
	SheetSummary   = "Summary"
	SheetForecast  = "Forecast"
)

// Workbook builds a workbook with the residual table, its summary
// statistics and the full forecast.
func Workbook(res *forecast.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetResiduals); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeResiduals(f, res.Residuals); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return nil, fmt.Errorf("new sheet %s: %w", SheetSummary, err)
	}
	if err := writeSummary(f, res); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetForecast); err != nil {
		return nil, fmt.Errorf("new sheet %s: %w", SheetForecast, err)
	}
	if err := writeForecast(f, res.Points); err != nil {
		return nil, err
	}
	return f, nil
}

// Write renders the workbook to w.
func Write(w io.Writer, res *forecast.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to a file.
func SaveAs(path string, res *forecast.Result) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("%s header: %w", sheet, err)
		}
		if err := f.SetColWidth(sheet, colName(i), colName(i), 14); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeResiduals(f *excelize.File, rs []forecast.Residual) error {
	if err := writeHeader(f, SheetResiduals, []string{"ds", "y", "yhat", "residual"}); err != nil {
		return err
	}
	for i, r := range rs {
		if err := writeRow(f, SheetResiduals, i+2, []any{
			r.Date.Format("2006-01-02"), r.Actual, r.Predicted, r.Residual,
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, res *forecast.Result) error {
	if err := writeHeader(f, SheetSummary, []string{"statistic", "residual"}); err != nil {
		return err
	}
	row := 2
	for _, sr := range res.Summary.Rows() {
		var v any = sr.Value
		if !sr.Valid() {
			v = ""
		}
		if err := writeRow(f, SheetSummary, row, []any{sr.Label, v}); err != nil {
			return err
		}
		row++
	}

	row++
	meta := [][]any{
		{"history_rows", res.History},
		{"horizon", res.Options.Horizon},
		{"interval_width", res.Options.IntervalWidth},
		{"phase", string(res.Phase)},
	}
	for _, m := range meta {
		if err := writeRow(f, SheetSummary, row, m); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeForecast(f *excelize.File, points []forecast.Point) error {
	if err := writeHeader(f, SheetForecast, []string{"ds", "yhat", "yhat_lower", "yhat_upper", "trend", "cycle"}); err != nil {
		return err
	}
	for i, p := range points {
		if err := writeRow(f, SheetForecast, i+2, []any{
			p.Date.Format("2006-01-02"), p.Yhat, p.Lower, p.Upper, p.Trend, p.Cycle,
		}); err != nil {
			return err
		}
	}
	return nil
}

func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}
