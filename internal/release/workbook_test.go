package release_test

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"silkstaff/internal/release"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "releases.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestReadWorkbookReturnsRawRows(t *testing.T) {
	path := writeWorkbook(t, release.DefaultSheet, [][]any{
		{"track", "cover", "upc"},
		{"01.wav", "cover.jpg", 4607123456789},
	})

	rows, err := release.ReadWorkbook(path, release.DefaultSheet)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[1][0] != "01.wav" || rows[1][2] != "4607123456789" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestReadWorkbookFallsBackToFirstSheet(t *testing.T) {
	path := writeWorkbook(t, "Releases", [][]any{{"track"}, {"a.wav"}})
	rows, err := release.ReadWorkbook(path, release.DefaultSheet)
	if err != nil {
		t.Fatalf("ReadWorkbook: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "a.wav" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestReadWorkbookMissingFile(t *testing.T) {
	if _, err := release.ReadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), release.DefaultSheet); err == nil {
		t.Fatal("expected error for missing workbook")
	}
}
