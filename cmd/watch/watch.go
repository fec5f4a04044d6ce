// Package watch provides the "chojson watch" commands.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdextract "github.com/klytics/chojson/cmd/extract"
	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/logging"
	"github.com/klytics/chojson/internal/runner"
	w "github.com/klytics/chojson/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	var (
		opts     cmdextract.Options
		debounce int
	)

	cmd := &cobra.Command{
		Use:   "watch [file.xlsx]",
		Short: "Re-run extract whenever the workbook changes",
		Long: `Runs one extraction, then watches the workbook and extracts again each
time it is saved. Stop with Ctrl+C or 'chojson watch stop'.

Example:
  chojson watch cho_202501.xlsx -o output.json
  chojson watch status`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := logging.Must(verbose)
			defer logger.Sync()

			r, job, err := runner.FromConfig(cfg, logger, "watch")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				job.Source = args[0]
			}
			cmdextract.Apply(r, &job, opts, cmd.OutOrStdout())

			if debounce <= 0 {
				debounce = cfg.Watch.DebounceMs
			}
			watchCfg := w.Config{Files: []string{job.Source}, Debounce: debounce}

			watcher, err := w.New(watchCfg, logger)
			if err != nil {
				return err
			}
			watcher.Handler = func(ctx context.Context, path string) error {
				res, err := r.Run(ctx, job)
				if err != nil {
					color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
					return err
				}
				cmdextract.Report(cmd.OutOrStdout(), res, opts)
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Initial run so the output reflects the workbook as it is now.
			if err := watcher.Handler(ctx, job.Source); err != nil {
				logger.Warn("initial extraction failed", zap.Error(err))
			}

			stateDir := w.DefaultStateDir()
			if err := w.WritePIDFile(stateDir); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not write PID file: %v\n", err)
			}
			defer w.RemovePIDFile(stateDir)
			w.SaveConfig(stateDir, watchCfg)

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (sheet %s)\n", job.Source, job.Sheet)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			err = watcher.Start(ctx)
			printSummary(cmd.OutOrStdout(), watcher.GetStatus())
			logger.Info("watcher stopped", zap.Error(err))
			return err
		},
	}

	cmd.Flags().StringVar(&opts.Sheet, "sheet", "", "Sheet to read (default from config)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output file (default from config)")
	cmd.Flags().IntVar(&debounce, "debounce", 0, "Debounce interval in milliseconds (default from config: 500)")

	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// printSummary reports what the session processed once the watcher stops.
func printSummary(out io.Writer, st w.Status) {
	fmt.Fprintf(out, "Stopped after %d change(s), %d failed\n", st.EventCount, st.Failed)
	if st.Last != nil && st.Last.Status == "error" {
		color.New(color.FgRed).Fprintf(out, "  last error: %s\n", st.Last.Error)
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()
			pid, err := w.ReadPIDFile(stateDir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}

			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(stateDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}

			w.RemovePIDFile(stateDir)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"stopped": true,
					"pid":     pid,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current watcher status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stateDir := w.DefaultStateDir()

			pid, err := w.ReadPIDFile(stateDir)
			running := err == nil

			// Signal 0 checks that the process still exists.
			if running {
				process, err := os.FindProcess(pid)
				if err != nil || process.Signal(syscall.Signal(0)) != nil {
					running = false
					w.RemovePIDFile(stateDir)
				}
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if !running {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{"running": false})
				}
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}

			watchCfg, _ := w.LoadConfig(stateDir)

			status := map[string]any{
				"running": true,
				"pid":     pid,
			}
			if watchCfg != nil {
				status["files"] = watchCfg.Files
				status["debounce_ms"] = watchCfg.Debounce
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(status)
			}

			fmt.Fprintf(out, "Watcher is running (PID %d)\n", pid)
			if watchCfg != nil {
				fmt.Fprintf(out, "  Files:    %s\n", strings.Join(watchCfg.Files, ", "))
				fmt.Fprintf(out, "  Debounce: %dms\n", watchCfg.Debounce)
			}
			return nil
		},
	}
}
