//go:build ignore

// This program generates testdata/cho_202501.xlsx, a small workbook with the
// layout of the monthly town population report.
package main

import (
	"fmt"
	"os"

	"github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
)

type town struct {
	name                            string
	households, total, male, female float64
}

var left = []town{
	{"上京区", 48512, 83832, 39111, 44721},
	{"一条殿町", 31, 52, 24, 28},
	{"今出川町", 102, 176, 80, 96},
	{"烏丸町", 55, 97, 45, 52},
}

var right = []town{
	{"中京区", 62385, 110488, 51022, 59466},
	{"  姉小路町 ", 74, 130, 61, 69},
	{"御池町", 88, 151, 70, 81},
}

func main() {
	if err := os.MkdirAll("testdata", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := xlsx.WriteGrid("testdata/cho_202501.xlsx", "印刷FORM", build()); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating cho_202501.xlsx: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test fixtures generated successfully.")
}

func build() *grid.Grid {
	const width = 18
	var rows [][]grid.Cell

	header := make([]grid.Cell, width)
	for i := range header {
		header[i] = grid.TextCell(extract.ColumnName(i))
	}
	header[4] = grid.TextCell("町名")
	header[13] = grid.TextCell("町名")
	rows = append(rows, header)

	// Page title repeated where the report breaks pages.
	title := make([]grid.Cell, width)
	title[4] = grid.TextCell(extract.ExcludedSectionTitle + "（令和7年1月1日現在）")
	rows = append(rows, title)

	for i := 0; i < len(left) || i < len(right); i++ {
		row := make([]grid.Cell, width)
		if i < len(left) {
			put(row, 4, left[i])
		}
		if i < len(right) {
			put(row, 13, right[i])
		} else {
			row[13] = grid.TextCell("nan")
		}
		rows = append(rows, row)
	}

	// Blank spacer row; skipped by the extractor.
	rows = append(rows, make([]grid.Cell, width))
	return grid.New(rows)
}

func put(row []grid.Cell, key int, t town) {
	row[key] = grid.TextCell(t.name)
	row[key+1] = grid.NumberCell(t.households)
	row[key+2] = grid.NumberCell(t.total)
	row[key+3] = grid.NumberCell(t.male)
	row[key+4] = grid.NumberCell(t.female)
}
