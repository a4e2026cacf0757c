package release

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ComparisonSheet names the sheet WriteComparison creates.
const ComparisonSheet = "Results"

const maxColumnWidth = 255

var comparisonHeader = []string{"Type", "Name in spreadsheet", "Found in folder", "Closest match", "Similarity, %", "Differences"}

// WriteComparison saves mismatches as a workbook at path. Rows below 50%
// similarity are filled red and rows below 80% yellow; columns are sized to
// their longest value.
func WriteComparison(path string, mismatches []Mismatch) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ComparisonSheet); err != nil {
		return fmt.Errorf("name results sheet: %w", err)
	}

	red, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FF0000"}}})
	if err != nil {
		return fmt.Errorf("create fill style: %w", err)
	}
	yellow, err := f.NewStyle(&excelize.Style{Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}}})
	if err != nil {
		return fmt.Errorf("create fill style: %w", err)
	}

	widths := make([]int, len(comparisonHeader))
	rows := make([][]any, 0, len(mismatches)+1)
	header := make([]any, len(comparisonHeader))
	for i, h := range comparisonHeader {
		header[i] = h
	}
	rows = append(rows, header)
	for _, m := range mismatches {
		found := m.Closest
		if found == "" {
			found = "Not found"
		}
		rows = append(rows, []any{m.Kind, m.Name, found, m.Closest, m.Similarity, m.Differences})
	}

	for i, row := range rows {
		for col, v := range row {
			if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[col] {
				widths[col] = n
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ComparisonSheet, ref, &row); err != nil {
			return fmt.Errorf("write results row %d: %w", i+1, err)
		}
		if i == 0 {
			continue
		}
		style := 0
		switch mismatches[i-1].Severity() {
		case SeverityHigh:
			style = red
		case SeverityMedium:
			style = yellow
		}
		if style == 0 {
			continue
		}
		last, err := excelize.CoordinatesToCellName(len(row), i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(ComparisonSheet, ref, last, style); err != nil {
			return fmt.Errorf("style results row %d: %w", i+1, err)
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(ComparisonSheet, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("size column %s: %w", name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save results %s: %w", path, err)
	}
	return nil
}
