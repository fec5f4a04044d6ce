// Package audit provides the "chojson audit" commands for the run history.
package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	auditpkg "github.com/klytics/chojson/internal/audit"
	"github.com/klytics/chojson/internal/config"
)

// NewCommand creates the "audit" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View and manage the extraction history",
		Long:  "Every extract and watch run appends one line to the audit log: source, sheet, output, record counts and errors.",
	}

	cmd.AddCommand(newLogCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func auditLogPath() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Audit.Path, nil
}

func newLogCmd() *cobra.Command {
	var (
		last   int
		source string
		since  string
		until  string
		failed bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditLogPath()
			if err != nil {
				return err
			}
			entries, err := auditpkg.ReadEntries(path)
			if err != nil {
				return err
			}

			sinceTime, err := parseDate("--since", since)
			if err != nil {
				return err
			}
			untilTime, err := parseDate("--until", until)
			if err != nil {
				return err
			}
			if !untilTime.IsZero() {
				untilTime = untilTime.Add(24*time.Hour - time.Nanosecond)
			}

			filtered := auditpkg.FilterEntries(entries, sinceTime, untilTime, source, failed)

			if last > 0 && len(filtered) > last {
				filtered = filtered[len(filtered)-last:]
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			if len(filtered) == 0 {
				fmt.Fprintln(out, "No audit log entries found.")
				return nil
			}

			fmt.Fprintf(out, "Audit Log: %d entries\n", len(filtered))
			fmt.Fprintf(out, "File: %s\n\n", path)

			red := color.New(color.FgRed).SprintFunc()
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TIMESTAMP\tCOMMAND\tSOURCE\tSHEET\tRECORDS\tDURATION\tSTATUS\n")
			for _, e := range filtered {
				ts := e.Timestamp.Format("2006-01-02 15:04:05")
				status := "ok"
				if !e.OK {
					status = red("failed")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					ts, e.Command, filepath.Base(e.Source), e.Sheet, e.Records, formatDuration(e.DurationMs), status)
			}
			tw.Flush()

			if failed {
				fmt.Fprintln(out)
				for _, e := range filtered {
					fmt.Fprintf(out, "  %s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show last N entries")
	cmd.Flags().StringVar(&source, "source", "", "Filter by workbook path substring")
	cmd.Flags().StringVar(&since, "since", "", "Filter entries since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&until, "until", "", "Filter entries up to date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only failed runs with their errors")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditLogPath()
			if err != nil {
				return err
			}
			if err := auditpkg.Clear(path); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"cleared": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Audit log cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show audit log path and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditLogPath()
			if err != nil {
				return err
			}
			size := auditpkg.LogSize(path)
			entries, _ := auditpkg.ReadEntries(path)

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":    path,
					"size":    size,
					"entries": len(entries),
				})
			}

			fmt.Fprintf(out, "Audit log: %s\n", path)
			if size == 0 {
				fmt.Fprintln(out, "Size:      empty (no entries)")
			} else {
				fmt.Fprintf(out, "Size:      %s\n", formatSize(size))
			}
			fmt.Fprintf(out, "Entries:   %d\n", len(entries))
			if n := len(entries); n > 0 {
				lastRun := entries[n-1]
				fmt.Fprintf(out, "Last run:  %s (%d records)\n", lastRun.Timestamp.Format("2006-01-02 15:04:05"), lastRun.Records)
			}
			return nil
		},
	}
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date: %w (use YYYY-MM-DD)", flag, err)
	}
	return t, nil
}

func formatDuration(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}

func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
