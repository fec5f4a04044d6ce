// Package doctor provides the "chojson doctor" command for checking the setup.
package doctor

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, workbook and layout",
		Long:  "Runs diagnostic checks: config file, source workbook, sheet, column layout and a dry-run extraction.",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := RunChecks()
			out := cmd.OutOrStdout()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				return enc.Encode(checks)
			}

			errCount := printChecks(out, checks)
			if errCount > 0 {
				return fmt.Errorf("%d check(s) failed", errCount)
			}
			return nil
		},
	}
}

func printChecks(out io.Writer, checks []Check) int {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintln(out, "chojson doctor")
	fmt.Fprintln(out, "==============")
	fmt.Fprintln(out)

	okCount, warnCount, errCount := 0, 0, 0
	for _, c := range checks {
		var icon string
		switch c.Status {
		case "ok":
			icon = green("✓")
			okCount++
		case "warning":
			icon = yellow("!")
			warnCount++
		case "error":
			icon = red("✗")
			errCount++
		}
		fmt.Fprintf(out, "  %s %s: %s\n", icon, c.Name, c.Message)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)
	return errCount
}

// RunChecks inspects the effective configuration and the workbook it points at.
func RunChecks() []Check {
	var checks []Check

	checks = append(checks, Check{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	path := config.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: path})
	} else {
		checks = append(checks, Check{Name: "Config File", Status: "warning", Message: fmt.Sprintf("%s not found; using defaults", path)})
	}

	cfg, err := config.Load()
	if err != nil {
		return append(checks, Check{Name: "Config", Status: "error", Message: err.Error()})
	}

	layout, err := cfg.ExtractLayout()
	if err != nil {
		checks = append(checks, Check{Name: "Layout", Status: "error", Message: err.Error()})
	} else {
		checks = append(checks, Check{
			Name:   "Layout",
			Status: "ok",
			Message: fmt.Sprintf("%s → %s, %s → %s",
				cfg.Layout.Primary.Key, cfg.Layout.Primary.Values,
				cfg.Layout.Secondary.Key, cfg.Layout.Secondary.Values),
		})
	}

	g, err := xlsx.LoadGrid(cfg.Source.Path, cfg.Source.Sheet)
	if err != nil {
		checks = append(checks, Check{Name: "Source Workbook", Status: "error", Message: err.Error()})
	} else {
		checks = append(checks, Check{
			Name:    "Source Workbook",
			Status:  "ok",
			Message: fmt.Sprintf("%s, sheet %s (%d rows, %d cols)", cfg.Source.Path, cfg.Source.Sheet, g.Len(), g.Width),
		})

		if layout.Groups != nil {
			_, stats, err := extract.ExtractWithStats(g, layout)
			switch {
			case err != nil:
				checks = append(checks, Check{Name: "Dry Run", Status: "error", Message: err.Error()})
			case stats.Kept == 0:
				checks = append(checks, Check{Name: "Dry Run", Status: "warning", Message: "no records extracted; check the sheet and layout"})
			default:
				checks = append(checks, Check{Name: "Dry Run", Status: "ok", Message: fmt.Sprintf("%d records", stats.Kept)})
			}
		}
	}

	outDir := filepath.Dir(cfg.Output.Path)
	if info, err := os.Stat(outDir); err == nil && info.IsDir() {
		checks = append(checks, Check{Name: "Output Directory", Status: "ok", Message: outDir})
	} else {
		checks = append(checks, Check{Name: "Output Directory", Status: "error", Message: fmt.Sprintf("%s does not exist", outDir)})
	}

	if cfg.Audit.Enabled {
		checks = append(checks, Check{Name: "Audit Log", Status: "ok", Message: cfg.Audit.Path})
	} else {
		checks = append(checks, Check{Name: "Audit Log", Status: "warning", Message: "disabled"})
	}

	return checks
}
