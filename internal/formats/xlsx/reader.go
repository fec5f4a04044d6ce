// Package xlsx loads worksheets into typed grids and writes grids back to
// .xlsx files.
package xlsx

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/chojson/internal/grid"
)

// ErrSourceNotFound is returned when the workbook or the sheet does not exist.
var ErrSourceNotFound = errors.New("source not found")

// SheetInfo summarizes one worksheet.
type SheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// LoadGrid reads the named sheet of an .xlsx file with no header handling.
func LoadGrid(path, sheet string) (*grid.Grid, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readSheet(f, sheet)
}

// LoadGridBytes reads the named sheet from workbook bytes.
func LoadGridBytes(data []byte, sheet string) (*grid.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readSheet(f, sheet)
}

// Sheets lists the worksheets of a workbook with their sizes.
func Sheets(path string) ([]SheetInfo, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var infos []SheetInfo
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}
		info := SheetInfo{Name: name, Rows: len(rows)}
		for _, r := range rows {
			if len(r) > info.Cols {
				info.Cols = len(r)
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func open(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: file %s does not exist; check that the path is correct", ErrSourceNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s (is this a valid .xlsx file?): %w", path, err)
	}
	return f, nil
}

func readSheet(f *excelize.File, sheet string) (*grid.Grid, error) {
	if err := requireSheet(f, sheet); err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}

	c := newClassifier(f, sheet)
	out := make([][]grid.Cell, len(rows))
	for r, row := range rows {
		cells := make([]grid.Cell, len(row))
		for col, raw := range row {
			if raw == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(col+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("invalid cell coordinates: %w", err)
			}
			cells[col] = c.cell(ref, raw)
		}
		out[r] = cells
	}
	return grid.New(out), nil
}

func requireSheet(f *excelize.File, sheet string) error {
	names := f.GetSheetList()
	for _, name := range names {
		if name == sheet {
			return nil
		}
	}
	return fmt.Errorf("%w: sheet %q not found; available sheets: %v", ErrSourceNotFound, sheet, names)
}

// classifier turns raw cell text into typed cells using the cell type and
// the number format of its style.
type classifier struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	dateFmt  map[int]bool
}

func newClassifier(f *excelize.File, sheet string) *classifier {
	c := &classifier{f: f, sheet: sheet, dateFmt: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		c.date1904 = *props.Date1904
	}
	return c
}

func (c *classifier) cell(ref, raw string) grid.Cell {
	typ, err := c.f.GetCellType(c.sheet, ref)
	if err != nil {
		return grid.TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return grid.BoolCell(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return grid.DateCell(t)
			}
		}
		return grid.TextCell(raw)
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return grid.TextCell(raw)
		}
		if c.isDate(ref) {
			if t, err := excelize.ExcelDateToTime(n, c.date1904); err == nil {
				return grid.DateCell(t)
			}
		}
		return grid.NumberCell(n)
	default:
		return grid.TextCell(raw)
	}
}

func (c *classifier) isDate(ref string) bool {
	styleID, err := c.f.GetCellStyle(c.sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if isDate, ok := c.dateFmt[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := c.f.GetStyle(styleID); err == nil {
		isDate = builtinDateFormats[style.NumFmt]
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	c.dateFmt[styleID] = isDate
	return isDate
}

// builtinDateFormats are the built-in number format ids that render dates or
// times.
var builtinDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isDateFormatCode reports whether a custom format code contains date or
// time tokens outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range code {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	plain := strings.ToLower(b.String())
	return strings.ContainsAny(plain, "yd") || (strings.Contains(plain, "h") && strings.Contains(plain, ":"))
}
