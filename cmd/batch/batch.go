// Package batch provides the "chojson batch" command for converting several
// monthly workbooks at once.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/logging"
	"github.com/klytics/chojson/internal/progress"
	"github.com/klytics/chojson/internal/runner"
)

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var (
		sheet       string
		outDir      string
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "batch <glob-pattern>",
		Short: "Convert every workbook matching a pattern",
		Long: `Runs extract on each workbook matching the pattern and writes one JSON
file per workbook (cho_202501.xlsx becomes cho_202501.json).
On error, the batch reports the failure and continues with the next workbook.

Example:
  chojson batch 'cho_2025*.xlsx' --out-dir json/ --concurrency 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")

			pattern := args[0]
			files, err := filepath.Glob(pattern)
			if err != nil {
				return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no workbooks matched pattern %q", pattern)
			}
			sort.Strings(files)

			if outDir != "" && !dryRun {
				if err := os.MkdirAll(outDir, 0755); err != nil {
					return fmt.Errorf("could not create output directory %s: %w", outDir, err)
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.Must(verbose)
			defer logger.Sync()

			r, tmpl, err := runner.FromConfig(cfg, logger, "batch")
			if err != nil {
				return err
			}
			if sheet != "" {
				tmpl.Sheet = sheet
			}
			tmpl.DryRun = dryRun

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bar := progress.New("extract", len(files), jsonFlag)
			items := r.RunBatch(ctx, tmpl, files, outDir, concurrency, func(item runner.BatchItem) {
				bar.Increment(filepath.Base(item.Source))
			})

			succeeded, failed, records := 0, 0, 0
			for _, item := range items {
				if item.Status == "ok" {
					succeeded++
					records += item.Records
				} else {
					failed++
				}
			}
			bar.Finish(fmt.Sprintf("%d workbooks", len(files)))

			if jsonFlag {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				if err := enc.Encode(items); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				green := color.New(color.FgGreen)
				red := color.New(color.FgRed)
				for _, item := range items {
					if item.Status == "ok" {
						target := item.Output
						if target == "" {
							target = "(dry run)"
						}
						green.Fprintf(out, "  ✓ %s → %s (%d records)\n", filepath.Base(item.Source), target, item.Records)
					} else {
						red.Fprintf(out, "  ✗ %s: %s\n", filepath.Base(item.Source), item.Error)
					}
				}
				fmt.Fprintf(out, "\nProcessed %d workbooks. %d succeeded, %d failed, %d records.\n", len(files), succeeded, failed, records)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d workbooks failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read in every workbook (default from config)")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for the JSON files (default: next to each workbook)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 1, "Number of workbooks converted in parallel")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract and report counts without writing")

	return cmd
}
