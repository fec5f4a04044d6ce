// Package grid holds the in-memory view of a worksheet: rows of typed cell
// values with no header interpretation and no coercion applied.
package grid

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind identifies the native type of a cell.
type Kind int

const (
	// Empty is a missing or blank cell.
	Empty Kind = iota
	// Text is a string cell (shared, inline or formula string result).
	Text
	// Number is a numeric cell.
	Number
	// Bool is a TRUE/FALSE cell.
	Bool
	// Date is a numeric cell formatted as a date, or an ISO date cell.
	Date
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Date:
		return "date"
	default:
		return "empty"
	}
}

// MissingText is how a missing cell renders as text.
const MissingText = "nan"

// DateLayout is the text and JSON rendering of date cells.
const DateLayout = "2006-01-02 15:04:05"

// Cell is a single worksheet value. Only the field matching Kind is set.
type Cell struct {
	Kind   Kind
	Text   string
	Number float64
	Bool   bool
	Time   time.Time
}

// TextCell returns a text cell.
func TextCell(s string) Cell { return Cell{Kind: Text, Text: s} }

// NumberCell returns a numeric cell.
func NumberCell(n float64) Cell { return Cell{Kind: Number, Number: n} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell { return Cell{Kind: Bool, Bool: b} }

// DateCell returns a date cell.
func DateCell(t time.Time) Cell { return Cell{Kind: Date, Time: t} }

// IsMissing reports whether the cell holds no value.
func (c Cell) IsMissing() bool {
	return c.Kind == Empty
}

// String converts the cell to text. Missing cells become "nan".
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return formatNumber(c.Number)
	case Bool:
		if c.Bool {
			return "True"
		}
		return "False"
	case Date:
		return c.Time.Format(DateLayout)
	default:
		return MissingText
	}
}

// MarshalJSON emits the cell in its native JSON type. Missing cells are null
// and integral numbers carry no fraction.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case Text:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(c.Text); err != nil {
			return nil, err
		}
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	case Number:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return []byte("null"), nil
		}
		return []byte(formatNumber(c.Number)), nil
	case Bool:
		return []byte(strconv.FormatBool(c.Bool)), nil
	case Date:
		return []byte(strconv.Quote(c.Time.Format(DateLayout))), nil
	default:
		return []byte("null"), nil
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Grid is a rectangular view of a worksheet. Rows may be ragged; any column
// below Width that a row does not reach reads as a missing cell.
type Grid struct {
	Rows  [][]Cell
	Width int
}

// New builds a grid from rows and computes its width.
func New(rows [][]Cell) *Grid {
	g := &Grid{Rows: rows}
	for _, row := range rows {
		if len(row) > g.Width {
			g.Width = len(row)
		}
	}
	return g
}

// Len returns the number of rows, header included.
func (g *Grid) Len() int {
	return len(g.Rows)
}

// Cell returns the value at (row, col), or a missing cell when the row is
// shorter than col.
func (g *Grid) Cell(row, col int) Cell {
	if row < 0 || row >= len(g.Rows) || col < 0 {
		return Cell{}
	}
	r := g.Rows[row]
	if col >= len(r) {
		return Cell{}
	}
	return r[col]
}
