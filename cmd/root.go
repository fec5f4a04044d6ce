// Package cmd contains all CLI commands for the chojson binary.
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	cmdaudit "github.com/klytics/chojson/cmd/audit"
	"github.com/klytics/chojson/cmd/batch"
	"github.com/klytics/chojson/cmd/completion"
	cmdconfig "github.com/klytics/chojson/cmd/config"
	"github.com/klytics/chojson/cmd/doctor"
	cmdextract "github.com/klytics/chojson/cmd/extract"
	"github.com/klytics/chojson/cmd/sheets"
	"github.com/klytics/chojson/cmd/version"
	cmdwatch "github.com/klytics/chojson/cmd/watch"
	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
	configFile string
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chojson",
		Short: "Convert the town population workbook to JSON",
		Long: `chojson reads the monthly town population workbook (cho_YYYYMM.xlsx)
and writes one JSON record per town: the town name mapped to its four
population figures.

Run 'chojson extract' in the directory holding cho_202501.xlsx to produce
output.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			config.UseFile(configFile)
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.chojson/config.yaml)")

	// Register subcommands
	rootCmd.AddCommand(cmdextract.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(batch.NewCommand())
	rootCmd.AddCommand(sheets.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(cmdaudit.NewCommand())
	rootCmd.AddCommand(doctor.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(output.ExitCode(err))
	}
}
