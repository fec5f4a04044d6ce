// Package config provides CLI commands for configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/chojson/internal/config"
)

// NewCommand returns the config command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chojson configuration",
		Long:  "View and modify the workbook location, sheet, column layout and exclusions.",
	}

	cmd.AddCommand(newShowCommand())
	cmd.AddCommand(newSetCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newResetCommand())
	cmd.AddCommand(newPathCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEnvCommand())

	return cmd
}

func newShowCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			if _, err := config.Load(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case jsonFlag:
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(config.ToEnv())
			case asYAML:
				s, err := config.ShowYAML()
				if err != nil {
					return err
				}
				fmt.Fprint(out, s)
				return nil
			}

			fmt.Fprint(out, config.ShowConfig())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print effective settings as YAML")
	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Sets a value and saves it to the config file.

Examples:
  chojson config set source.path ./cho_202502.xlsx
  chojson config set layout.primary.values F:I
  chojson config set exclude.phrases "京都市住民基本台帳の町別人口,合計"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(); err != nil {
				return err
			}
			val := config.Get(args[0])
			if val == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], val)
			}
			return nil
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset configuration to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ResetConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}
}

func newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.ConfigPath())
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			issues := config.Validate()
			out := cmd.OutOrStdout()

			if jsonFlag {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(issues)
			}

			errors := 0
			warnings := 0
			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					errors++
				case "warning":
					warnings++
				}
			}

			if errors == 0 && warnings == 0 {
				color.New(color.FgGreen).Fprintln(out, "Configuration is valid")
			} else {
				fmt.Fprintf(out, "Config validation: %d errors, %d warnings\n\n", errors, warnings)
			}

			for _, issue := range issues {
				switch issue.Severity {
				case "error":
					color.New(color.FgRed).Fprintf(out, "  %s\n", issue.Message)
				case "warning":
					color.New(color.FgYellow).Fprintf(out, "  %s\n", issue.Message)
				case "info":
					color.New(color.FgGreen).Fprintf(out, "  %s\n", issue.Message)
				}
				if issue.Fix != "" && issue.Severity != "info" {
					fmt.Fprintf(out, "   Fix: %s\n", issue.Fix)
				}
			}

			if errors > 0 {
				return fmt.Errorf("%d config error(s)", errors)
			}
			return nil
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Export configuration as environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			if _, err := config.Load(); err != nil {
				return err
			}
			env := config.ToEnv()
			out := cmd.OutOrStdout()

			if jsonFlag {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(env)
			}

			// Sort keys for deterministic output
			keys := make([]string, 0, len(env))
			for k := range env {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				fmt.Fprintf(out, "export %s=%q\n", k, env[k])
			}
			fmt.Fprintln(out, "# Add these to .env or your shell profile")
			return nil
		},
	}
}
