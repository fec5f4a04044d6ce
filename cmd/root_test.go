package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/klytics/chojson/internal/config"
	"github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
	"github.com/klytics/chojson/internal/output"
)

// run executes the root command in-process and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(func() {
		viper.Reset()
		jsonOutput, verbose, noColor, configFile = false, false, false, ""
		config.UseFile("")
	})

	header := make([]grid.Cell, 18)
	for i := range header {
		header[i] = grid.TextCell(extract.ColumnName(i))
	}
	row := make([]grid.Cell, 18)
	row[4] = grid.TextCell("人口")
	row[5], row[6], row[7], row[8] = grid.NumberCell(10), grid.NumberCell(20), grid.NumberCell(30), grid.NumberCell(40)

	path := filepath.Join(t.TempDir(), "cho_202501.xlsx")
	if err := xlsx.WriteGrid(path, "印刷FORM", grid.New([][]grid.Cell{header, row})); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAllCommandsExist(t *testing.T) {
	setup(t)
	stdout, err := run(t, "--help")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"extract", "watch", "batch", "sheets", "config", "audit", "doctor", "completion", "version"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("command %q not found in --help output", name)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	setup(t)
	stdout, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "chojson ") {
		t.Errorf("unexpected version output: %q", stdout)
	}
}

func TestExtractJSONEnvelope(t *testing.T) {
	src := setup(t)
	out := filepath.Join(t.TempDir(), "output.json")

	stdout, err := run(t, "extract", src, "-o", out, "--json")
	if err != nil {
		t.Fatal(err)
	}

	var result output.JSONResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("--json output is not valid JSON: %v\nOutput: %s", err, stdout)
	}
	if !result.OK || result.Command != "extract" {
		t.Errorf("unexpected envelope: %+v", result)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file not written: %v", err)
	}
}

func TestExtractUsesConfigFile(t *testing.T) {
	src := setup(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config.json")
	cfgPath := filepath.Join(dir, "chojson.yaml")
	cfg := "source:\n  path: " + src + "\noutput:\n  path: " + out + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfgPath, "extract"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"人口"`) {
		t.Errorf("unexpected document: %s", data)
	}
}

func TestExtractMissingWorkbookExitCode(t *testing.T) {
	setup(t)
	_, err := run(t, "extract", filepath.Join(t.TempDir(), "missing.xlsx"))
	if err == nil {
		t.Fatal("expected error for missing workbook")
	}
	if code := output.ExitCode(err); code != output.ExitUserError {
		t.Errorf("expected exit code %d, got %d", output.ExitUserError, code)
	}
}

func TestWatchStatusNotRunning(t *testing.T) {
	setup(t)
	stdout, err := run(t, "watch", "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "not running") {
		t.Errorf("unexpected watch status: %q", stdout)
	}
}
