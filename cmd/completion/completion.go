// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for chojson.

Install instructions:
  Bash:       chojson completion bash > /etc/bash_completion.d/chojson
              echo 'source <(chojson completion bash)' >> ~/.bashrc
  Zsh:        chojson completion zsh > ~/.zsh/completions/_chojson
  Fish:       chojson completion fish > ~/.config/fish/completions/chojson.fish
  PowerShell: chojson completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# chojson bash completion")
				fmt.Fprintln(out, "# Install: chojson completion bash > /etc/bash_completion.d/chojson")
				fmt.Fprintln(out)
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintln(out, "# chojson zsh completion")
				fmt.Fprintln(out, "# Install: chojson completion zsh > ~/.zsh/completions/_chojson")
				fmt.Fprintln(out)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# chojson fish completion")
				fmt.Fprintln(out, "# Install: chojson completion fish > ~/.config/fish/completions/chojson.fish")
				fmt.Fprintln(out)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# chojson PowerShell completion")
				fmt.Fprintln(out, "# Install: chojson completion powershell >> $PROFILE")
				fmt.Fprintln(out)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
	return cmd
}
