package testsupport

import (
	"testing"

	"github.com/xuri/excelize/v2"

	"silkstaff/internal/config"
	"silkstaff/internal/upload"
)

// MustOpenUploadStore opens the upload resume store for tests and registers cleanup.
func MustOpenUploadStore(t testing.TB, cfg *config.Config) *upload.Store {
	t.Helper()

	store, err := upload.OpenStore(cfg.Upload.StorePath)
	if err != nil {
		t.Fatalf("upload.OpenStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// WriteWorkbook saves rows to sheet of a new xlsx file at path.
func WriteWorkbook(t testing.TB, path, sheet string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("rename sheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}
