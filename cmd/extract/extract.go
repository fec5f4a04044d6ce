// Package extract provides the "chojson extract" command.
package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	ex "github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
	"github.com/klytics/chojson/internal/logging"
	"github.com/klytics/chojson/internal/output"
	"github.com/klytics/chojson/internal/progress"
	"github.com/klytics/chojson/internal/runner"
)

// Options are the per-invocation overrides of the configured job.
type Options struct {
	Sheet  string
	Output string
	Stdout bool
	DryRun bool
}

// NewCommand returns the extract command.
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "extract [file.xlsx]",
		Short: "Convert the town population workbook to JSON",
		Long: `Reads the population sheet of the workbook and writes one record per town
to the output file. Without arguments it reads ./cho_202501.xlsx, sheet 印刷FORM,
and writes output.json. A source of "-" reads the workbook from stdin.

Examples:
  chojson extract
  chojson extract cho_202502.xlsx -o 202502.json
  chojson extract --stdout | jq length
  curl -s https://example.org/cho.xlsx | chojson extract - -o output.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return fail(cmd, jsonOut, err)
			}

			logger := logging.Must(verbose)
			defer logger.Sync()

			r, job, err := runner.FromConfig(cfg, logger, "extract")
			if err != nil {
				return fail(cmd, jsonOut, err)
			}
			if len(args) == 1 {
				job.Source = args[0]
			}
			Apply(r, &job, opts, cmd.OutOrStdout())
			if job.Source == "-" {
				r.Load = StdinSource(cmd.InOrStdin())
			}

			spin := progress.NewSpinner(fmt.Sprintf("Reading %s (%s)", job.Source, job.Sheet), jsonOut)
			spin.Start()
			res, err := r.Run(ctx, job)
			spin.Stop("")
			if err != nil {
				return fail(cmd, jsonOut, err)
			}

			if jsonOut {
				if opts.Stdout {
					// The document already went to stdout.
					return nil
				}
				return output.PrintJSON(cmd.OutOrStdout(), "extract", res)
			}
			w := cmd.OutOrStdout()
			if opts.Stdout {
				w = cmd.ErrOrStderr()
			}
			Report(w, res, opts)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Sheet to read (default from config: 印刷FORM)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (default from config: output.json)")
	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "Write the JSON document to stdout instead of a file")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Extract and report counts without writing")

	return cmd
}

// Apply folds flag overrides into the job. With Stdout set the document is
// encoded to w instead of a file.
func Apply(r *runner.Runner, job *runner.Job, opts Options, w io.Writer) {
	if opts.Sheet != "" {
		job.Sheet = opts.Sheet
	}
	if opts.Output != "" {
		job.Output = opts.Output
	}
	job.DryRun = opts.DryRun
	if opts.Stdout {
		job.Output = "-"
		r.Write = func(_ string, doc []ex.Record) error {
			return output.EncodeDocument(w, doc)
		}
	}
}

// StdinSource loads the workbook from r. The path argument is ignored.
func StdinSource(r io.Reader) runner.SourceFunc {
	return func(_, sheet string) (*grid.Grid, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("could not read workbook from stdin: %w", err)
		}
		return xlsx.LoadGridBytes(data, sheet)
	}
}

// Report prints the human-readable outcome of a run to w.
func Report(w io.Writer, res *runner.Result, opts Options) {
	green := color.New(color.FgGreen)
	dim := color.New(color.FgHiBlack)

	switch {
	case opts.DryRun:
		green.Fprintf(w, "Dry run: %d records from '%s' (%s)\n", res.Stats.Kept, res.Source, res.Sheet)
	case opts.Stdout:
		dim.Fprintf(w, "%d records from '%s'\n", res.Stats.Kept, res.Source)
		return
	default:
		green.Fprintf(w, "Created JSON file '%s' (%d records)\n", res.Output, res.Stats.Kept)
	}

	for _, reason := range []string{"missing", "excluded", "empty"} {
		if n := res.Stats.Dropped[reason]; n > 0 {
			dim.Fprintf(w, "  dropped %d %s key(s)\n", n, reason)
		}
	}
}

func fail(cmd *cobra.Command, jsonOut bool, err error) error {
	if jsonOut {
		output.PrintJSONError(cmd.OutOrStdout(), "extract", err, output.ExitCode(err))
	}
	return err
}
