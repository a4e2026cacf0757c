package release

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name the distributor template uses.
const DefaultSheet = "Лист1"

// ReadWorkbook returns the raw cell values of sheet, header row included.
// When sheet is missing the first sheet of the workbook is read instead.
func ReadWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := sheet
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 || name == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		name = sheets[0]
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return rows, nil
}
