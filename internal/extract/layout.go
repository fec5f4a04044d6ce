package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/chojson/internal/grid"
)

// ValueGroupSize is the number of value columns that follow each key column.
const ValueGroupSize = 4

// ExcludedSectionTitle is the section heading that shows up in the key
// columns of the town population sheet and is not a town.
const ExcludedSectionTitle = "京都市住民基本台帳の町別人口"

// ErrInvalidLayout is returned when a layout cannot be used for extraction.
var ErrInvalidLayout = errors.New("invalid layout")

// MatchMode selects how the missing-key marker is compared against keys.
type MatchMode string

const (
	// MatchSubstring drops any key containing the marker ("banana" included).
	MatchSubstring MatchMode = "substring"
	// MatchExact drops only keys equal to the marker.
	MatchExact MatchMode = "exact"
)

// Group is one key column and the value columns that belong to it.
type Group struct {
	Name         string
	KeyColumn    int
	ValueColumns []int
	Labels       []string
}

// Exclude holds the key rules applied after all records are collected.
type Exclude struct {
	Match   MatchMode
	Phrases []string
}

// Layout names the column roles of the sheet. Column indexes are zero-based.
type Layout struct {
	HeaderRows int
	Groups     []Group
	MissingKey string
	Exclude    Exclude
}

// DefaultLayout returns the town population layout: key E with values F..I,
// key N with values O..R, one header row.
func DefaultLayout() Layout {
	primary, _ := NewGroup("primary", "E", "F:I")
	secondary, _ := NewGroup("secondary", "N", "O:R")
	return Layout{
		HeaderRows: 1,
		Groups:     []Group{primary, secondary},
		MissingKey: grid.MissingText,
		Exclude: Exclude{
			Match:   MatchSubstring,
			Phrases: []string{ExcludedSectionTitle},
		},
	}
}

// NewGroup builds a group from a key column letter and a value column spec
// such as "F:I" or "F,G,H,I". Labels are the value column letters.
func NewGroup(name, key, values string) (Group, error) {
	keyCol, err := ParseColumn(key)
	if err != nil {
		return Group{}, err
	}
	cols, err := ParseColumns(values)
	if err != nil {
		return Group{}, err
	}
	labels := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = ColumnName(c)
	}
	return Group{
		Name:         name,
		KeyColumn:    keyCol,
		ValueColumns: cols,
		Labels:       labels,
	}, nil
}

// ParseColumn converts a column letter ("E") to a zero-based index.
func ParseColumn(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("%w: bad column %q: %v", ErrInvalidLayout, name, err)
	}
	return n - 1, nil
}

// ParseColumns accepts a range ("F:I") or a comma list ("F,G,H,I").
func ParseColumns(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if from, to, ok := strings.Cut(spec, ":"); ok {
		start, err := ParseColumn(from)
		if err != nil {
			return nil, err
		}
		end, err := ParseColumn(to)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, fmt.Errorf("%w: column range %q runs backwards", ErrInvalidLayout, spec)
		}
		cols := make([]int, 0, end-start+1)
		for c := start; c <= end; c++ {
			cols = append(cols, c)
		}
		return cols, nil
	}

	var cols []int
	for _, part := range strings.Split(spec, ",") {
		c, err := ParseColumn(part)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// ColumnName converts a zero-based index back to its letter.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return fmt.Sprintf("#%d", col)
	}
	return name
}

// Validate checks that the layout can drive an extraction.
func (l Layout) Validate() error {
	if l.HeaderRows < 0 {
		return fmt.Errorf("%w: header rows must not be negative", ErrInvalidLayout)
	}
	if len(l.Groups) == 0 {
		return fmt.Errorf("%w: no key groups defined", ErrInvalidLayout)
	}
	switch l.Exclude.Match {
	case "", MatchSubstring, MatchExact:
	default:
		return fmt.Errorf("%w: unknown match mode %q (use substring or exact)", ErrInvalidLayout, l.Exclude.Match)
	}
	for _, g := range l.Groups {
		if g.KeyColumn < 0 {
			return fmt.Errorf("%w: group %q has a negative key column", ErrInvalidLayout, g.Name)
		}
		if len(g.ValueColumns) != ValueGroupSize {
			return fmt.Errorf("%w: group %q has %d value columns, want %d",
				ErrInvalidLayout, g.Name, len(g.ValueColumns), ValueGroupSize)
		}
		if len(g.Labels) != len(g.ValueColumns) {
			return fmt.Errorf("%w: group %q has %d labels for %d value columns",
				ErrInvalidLayout, g.Name, len(g.Labels), len(g.ValueColumns))
		}
		seen := make(map[string]bool, len(g.Labels))
		for i, c := range g.ValueColumns {
			if c < 0 {
				return fmt.Errorf("%w: group %q has a negative value column", ErrInvalidLayout, g.Name)
			}
			if seen[g.Labels[i]] {
				return fmt.Errorf("%w: group %q repeats label %q", ErrInvalidLayout, g.Name, g.Labels[i])
			}
			seen[g.Labels[i]] = true
		}
	}
	return nil
}

// maxColumn returns the highest column index the layout reads.
func (l Layout) maxColumn() int {
	highest := -1
	for _, g := range l.Groups {
		if g.KeyColumn > highest {
			highest = g.KeyColumn
		}
		for _, c := range g.ValueColumns {
			if c > highest {
				highest = c
			}
		}
	}
	return highest
}

func (l Layout) missingKey() string {
	if l.MissingKey == "" {
		return grid.MissingText
	}
	return l.MissingKey
}
