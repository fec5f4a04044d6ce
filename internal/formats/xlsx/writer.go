package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/chojson/internal/grid"
)

// WriteGrid creates a new .xlsx file holding g on a single sheet. Cells keep
// their kind: numbers stay numeric and dates get a date format.
func WriteGrid(path, sheet string, g *grid.Grid) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("could not rename sheet: %w", err)
	}

	for rowIdx, row := range g.Rows {
		for colIdx, cell := range row {
			if cell.IsMissing() {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if err := setCell(f, sheet, cellName, cell); err != nil {
				return fmt.Errorf("could not set cell %s: %w", cellName, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

func setCell(f *excelize.File, sheet, ref string, c grid.Cell) error {
	switch c.Kind {
	case grid.Text:
		return f.SetCellStr(sheet, ref, c.Text)
	case grid.Number:
		return f.SetCellFloat(sheet, ref, c.Number, -1, 64)
	case grid.Bool:
		return f.SetCellBool(sheet, ref, c.Bool)
	case grid.Date:
		return f.SetCellValue(sheet, ref, c.Time)
	}
	return nil
}
