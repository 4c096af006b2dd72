package table

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet XLSX tables are written to
const SheetName = "Pages"

func (t *Table) writeXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet rather than adding a second one
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	header := t.Header()
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, r := range t.Rows {
		row := i + 2
		for col, value := range t.Record(r) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)

			// Page numbers stay numeric so spreadsheets can sort them
			var v any = value
			if col == 0 {
				v, _ = strconv.Atoi(value)
			}

			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("xlsx row %d: %w", row, err)
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 10); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}

	if err := f.SetColWidth(SheetName, "B", last, 60); err != nil {
		return fmt.Errorf("xlsx column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
