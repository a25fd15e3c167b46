// Package export writes the patient table and its summary to an xlsx
// workbook and reads CSV or xlsx files back for import.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/pimalab/pimadash/internal/aggregate"
	"github.com/pimalab/pimadash/internal/dataset"
)

// Sheet names of the exported workbook. Records comes first so a re-import
// reads it by default.
const (
	SheetRecords = "Records"
	SheetSummary = "Summary"
	SheetOutcome = "Outcome"
	SheetZeros   = "Zeros"
	SheetAges    = "Ages"
)

// Workbook builds the workbook in memory. The caller closes it.
func Workbook(t *dataset.Table, summary aggregate.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name records sheet: %w", err)
	}

	if err := writeRecords(f, t); err != nil {
		_ = f.Close()
		return nil, err
	}

	summaryRows := [][]interface{}{{"Metric", "Value"}, {"Rows", summary.Rows}}
	for _, m := range summary.Means {
		summaryRows = append(summaryRows, []interface{}{"Mean " + m.Column, m.Value})
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetSummary, summaryRows},
		{SheetOutcome, countRows("Outcome", summary.Outcome)},
		{SheetZeros, zeroRows(summary.Zeros)},
		{SheetAges, countRows(dataset.ColumnAge, summary.AgeDistribution)},
	}
	for _, sheet := range sheets {
		if _, err := f.NewSheet(sheet.name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet.name, err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, t *dataset.Table, summary aggregate.Summary) error {
	f, err := Workbook(t, summary)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRecords(f *excelize.File, t *dataset.Table) error {
	columns := t.Columns()
	rows := make([][]interface{}, 0, t.Len()+1)

	header := make([]interface{}, len(columns))
	for i, name := range columns {
		header[i] = name
	}
	rows = append(rows, header)

	for i := 0; i < t.Len(); i++ {
		record := t.Row(i)
		row := make([]interface{}, len(record))
		for j, v := range record {
			row[j] = v.Interface()
		}
		rows = append(rows, row)
	}
	return writeRows(f, SheetRecords, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func countRows(label string, counts []aggregate.Count) [][]interface{} {
	rows := [][]interface{}{{label, "Count"}}
	for _, c := range counts {
		rows = append(rows, []interface{}{c.Category, c.Count})
	}
	return rows
}

func zeroRows(zeros []aggregate.ZeroCount) [][]interface{} {
	rows := [][]interface{}{{"Feature", "Number of Zeros"}}
	for _, z := range zeros {
		rows = append(rows, []interface{}{z.Feature, z.Count})
	}
	return rows
}
