package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func testRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "chojson"}
	root.AddCommand(&cobra.Command{Use: "extract", Short: "Convert the workbook to JSON"})
	root.AddCommand(&cobra.Command{Use: "sheets", Short: "List sheets"})
	root.AddCommand(NewCommand(root))
	return root
}

func run(t *testing.T, shell string) string {
	t.Helper()
	root := testRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", shell})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestBashCompletion(t *testing.T) {
	output := run(t, "bash")
	if !strings.Contains(output, "_chojson") {
		t.Error("bash completion should contain _chojson function")
	}
	if !strings.HasPrefix(output, "# chojson bash completion") {
		t.Error("bash completion should start with the install header")
	}
}

func TestZshCompletion(t *testing.T) {
	if !strings.Contains(run(t, "zsh"), "compdef") {
		t.Error("zsh completion should contain compdef")
	}
}

func TestFishCompletion(t *testing.T) {
	if !strings.Contains(run(t, "fish"), "complete -c chojson") {
		t.Error("fish completion should contain 'complete -c chojson'")
	}
}

func TestPowerShellCompletion(t *testing.T) {
	if !strings.Contains(run(t, "powershell"), "chojson") {
		t.Error("PowerShell completion should contain chojson")
	}
}

func TestUnsupportedShell(t *testing.T) {
	root := testRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unsupported shell")
	}
}
