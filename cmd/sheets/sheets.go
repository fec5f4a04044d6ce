// Package sheets provides the "chojson sheets" command for inspecting a workbook.
package sheets

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
)

const maxColWidth = 20

// NewCommand returns the sheets command.
func NewCommand() *cobra.Command {
	var preview string
	var rows int

	cmd := &cobra.Command{
		Use:   "sheets [file.xlsx]",
		Short: "List the sheets of a workbook",
		Long: `Lists every sheet with its size. Use it when extract reports that the
sheet was not found. --preview shows the first rows of one sheet with column
letters, which helps when adjusting layout.primary and layout.secondary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			path := config.DefaultSource
			if len(args) == 1 {
				path = args[0]
			} else if cfg, err := config.Load(); err == nil {
				path = cfg.Source.Path
			}

			if preview != "" {
				g, err := xlsx.LoadGrid(path, preview)
				if err != nil {
					return err
				}
				if jsonOut {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetEscapeHTML(false)
					enc.SetIndent("", "  ")
					return enc.Encode(head(g, rows))
				}
				printGrid(cmd.OutOrStdout(), preview, g, rows)
				return nil
			}

			infos, err := xlsx.Sheets(path)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}

			out := cmd.OutOrStdout()
			color.New(color.Bold, color.FgCyan).Fprintf(out, "Workbook: %s\n", path)
			for _, info := range infos {
				fmt.Fprintf(out, "  %-20s %5d rows  %3d cols\n", info.Name, info.Rows, info.Cols)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&preview, "preview", "", "Show the first rows of the named sheet")
	cmd.Flags().IntVar(&rows, "rows", 10, "Number of rows to preview")

	return cmd
}

func head(g *grid.Grid, n int) [][]grid.Cell {
	if n > g.Len() || n <= 0 {
		n = g.Len()
	}
	return g.Rows[:n]
}

func printGrid(out io.Writer, name string, g *grid.Grid, n int) {
	headerStyle := color.New(color.Bold, color.FgCyan)
	dim := color.New(color.FgHiBlack)

	headerStyle.Fprintf(out, "Sheet: %s\n", name)
	if g.Len() == 0 {
		dim.Fprintln(out, "  (empty)")
		return
	}

	rows := head(g, n)

	// Column widths in runes, capped
	widths := make([]int, g.Width)
	for j := range widths {
		widths[j] = utf8.RuneCountInString(extract.ColumnName(j))
	}
	for _, row := range rows {
		for j, c := range row {
			if w := utf8.RuneCountInString(cellText(c)); w > widths[j] {
				widths[j] = w
			}
		}
	}
	for j := range widths {
		if widths[j] > maxColWidth {
			widths[j] = maxColWidth
		}
	}

	letters := make([]string, g.Width)
	for j := range letters {
		letters[j] = extract.ColumnName(j)
	}
	printRow(out, letters, widths, color.New(color.Bold))

	fmt.Fprint(out, "  ")
	for j, w := range widths {
		if j > 0 {
			dim.Fprint(out, "+-")
		}
		dim.Fprint(out, strings.Repeat("-", w+1))
	}
	fmt.Fprintln(out)

	for _, row := range rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = cellText(c)
		}
		printRow(out, cells, widths, nil)
	}

	dim.Fprintf(out, "  (%d of %d rows)\n", len(rows), g.Len())
}

func cellText(c grid.Cell) string {
	if c.Kind == grid.Empty {
		return ""
	}
	return c.String()
}

func printRow(out io.Writer, row []string, widths []int, style *color.Color) {
	fmt.Fprint(out, "  ")
	for j := range widths {
		if j > 0 {
			fmt.Fprint(out, "| ")
		}
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		if r := []rune(cell); len(r) > widths[j] {
			cell = string(r[:widths[j]-1]) + "~"
		}
		padded := cell + strings.Repeat(" ", widths[j]-utf8.RuneCountInString(cell)+1)
		if style != nil {
			style.Fprint(out, padded)
		} else {
			fmt.Fprint(out, padded)
		}
	}
	fmt.Fprintln(out)
}
