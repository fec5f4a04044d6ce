// Package extract turns the rows of a town population grid into keyed
// records. Each data row yields one record per key group; keys are stripped of
// whitespace and records with missing, empty or excluded keys are dropped.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/klytics/chojson/internal/grid"
)

// ErrColumnOutOfRange is returned when the layout reads a column the grid
// does not have.
var ErrColumnOutOfRange = errors.New("column out of range")

// Field is one labelled value of a value group.
type Field struct {
	Label string
	Value grid.Cell
}

// ValueGroup holds the value cells of a key group in column order.
type ValueGroup []Field

// MarshalJSON writes the group as an object with labels in column order.
func (v ValueGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, f.Label); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("could not encode %s: %w", f.Label, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Record maps one normalized key to its value group.
type Record struct {
	Key    string
	Values ValueGroup
}

// MarshalJSON writes the record as a single-key object.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeString(&buf, r.Key); err != nil {
		return nil, err
	}
	buf.WriteByte(':')
	values, err := r.Values.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(values)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

// DropReason says why a key was rejected.
type DropReason int

const (
	// Keep means the key passes every rule.
	Keep DropReason = iota
	// DropMissing is a key matching the missing-cell marker.
	DropMissing
	// DropExcluded is a key containing an excluded phrase.
	DropExcluded
	// DropEmpty is a key that is empty after whitespace removal.
	DropEmpty
)

func (r DropReason) String() string {
	switch r {
	case DropMissing:
		return "missing"
	case DropExcluded:
		return "excluded"
	case DropEmpty:
		return "empty"
	default:
		return "keep"
	}
}

// Stats counts what happened during one extraction.
type Stats struct {
	RowsScanned int            `json:"rows_scanned"`
	RowsSkipped int            `json:"rows_skipped"`
	Built       int            `json:"records_built"`
	Kept        int            `json:"records_kept"`
	Dropped     map[string]int `json:"records_dropped,omitempty"`
}

// NormalizeKey removes every whitespace rune, line breaks included.
func NormalizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Check applies the exclusion rules to a normalized key. It depends on the
// key text only.
func (l Layout) Check(key string) DropReason {
	if key == "" {
		return DropEmpty
	}
	marker := l.missingKey()
	if l.Exclude.Match == MatchExact {
		if key == marker {
			return DropMissing
		}
	} else if strings.Contains(key, marker) {
		return DropMissing
	}
	for _, phrase := range l.Exclude.Phrases {
		if phrase != "" && strings.Contains(key, phrase) {
			return DropExcluded
		}
	}
	return Keep
}

// Extract builds the output document from g.
func Extract(g *grid.Grid, l Layout) ([]Record, error) {
	records, _, err := ExtractWithStats(g, l)
	return records, err
}

// ExtractWithStats is Extract plus counters for reporting.
func ExtractWithStats(g *grid.Grid, l Layout) ([]Record, Stats, error) {
	var stats Stats
	if err := l.Validate(); err != nil {
		return nil, stats, err
	}
	if g == nil {
		g = grid.New(nil)
	}
	if col := l.maxColumn(); col >= g.Width {
		return nil, stats, fmt.Errorf("%w: layout reads column %s but the sheet is %d column(s) wide",
			ErrColumnOutOfRange, ColumnName(col), g.Width)
	}

	candidates := candidateRecords(g, l, &stats)
	stats.Built = len(candidates)

	out := make([]Record, 0, len(candidates))
	for _, rec := range candidates {
		if reason := l.Check(rec.Key); reason != Keep {
			if stats.Dropped == nil {
				stats.Dropped = make(map[string]int)
			}
			stats.Dropped[reason.String()]++
			continue
		}
		out = append(out, rec)
	}
	stats.Kept = len(out)
	return out, stats, nil
}

// candidateRecords maps every eligible row to one record per group, before
// any key is checked.
func candidateRecords(g *grid.Grid, l Layout, stats *Stats) []Record {
	var out []Record
	for row := l.HeaderRows; row < g.Len(); row++ {
		stats.RowsScanned++
		if !hasKey(g, l, row) {
			stats.RowsSkipped++
			continue
		}
		for _, grp := range l.Groups {
			out = append(out, buildRecord(g, l, grp, row))
		}
	}
	return out
}

func hasKey(g *grid.Grid, l Layout, row int) bool {
	for _, grp := range l.Groups {
		if !g.Cell(row, grp.KeyColumn).IsMissing() {
			return true
		}
	}
	return false
}

func buildRecord(g *grid.Grid, l Layout, grp Group, row int) Record {
	keyCell := g.Cell(row, grp.KeyColumn)
	key := l.missingKey()
	if !keyCell.IsMissing() {
		key = keyCell.String()
	}

	values := make(ValueGroup, len(grp.ValueColumns))
	for i, col := range grp.ValueColumns {
		values[i] = Field{Label: grp.Labels[i], Value: g.Cell(row, col)}
	}
	return Record{Key: NormalizeKey(key), Values: values}
}
