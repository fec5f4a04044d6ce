package extract

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	ex "github.com/klytics/chojson/internal/extract"
	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
	"github.com/klytics/chojson/internal/runner"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)

	header := make([]grid.Cell, 18)
	for i := range header {
		header[i] = grid.TextCell(ex.ColumnName(i))
	}
	row := make([]grid.Cell, 18)
	row[4] = grid.TextCell("人口")
	row[5], row[6], row[7], row[8] = grid.NumberCell(10), grid.NumberCell(20), grid.NumberCell(30), grid.NumberCell(40)
	row[13] = grid.TextCell("nan")

	path := filepath.Join(t.TempDir(), "cho_202501.xlsx")
	if err := xlsx.WriteGrid(path, "印刷FORM", grid.New([][]grid.Cell{header, row})); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractCommandWritesFile(t *testing.T) {
	src := setup(t)
	out := filepath.Join(t.TempDir(), "output.json")

	cmd := NewCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{src, "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(stdout.String(), "Created JSON file '"+out+"' (1 records)") {
		t.Errorf("unexpected status: %q", stdout.String())
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var doc []map[string]map[string]float64
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc) != 1 || doc[0]["人口"]["I"] != 40 {
		t.Errorf("unexpected document: %s", data)
	}
}

func TestExtractCommandStdout(t *testing.T) {
	src := setup(t)

	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{src, "--stdout"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(stdout.String(), "[\n  {\n    \"人口\"") {
		t.Errorf("stdout should hold the document, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "1 records") {
		t.Errorf("status should go to stderr, got %q", stderr.String())
	}
}

func TestExtractCommandReadsStdin(t *testing.T) {
	src := setup(t)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "output.json")

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(bytes.NewReader(data))
	cmd.SetArgs([]string{"-", "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(written), "人口") {
		t.Errorf("unexpected document: %s", written)
	}
}

func TestStdinSourceRejectsGarbage(t *testing.T) {
	load := StdinSource(strings.NewReader("not a workbook"))
	if _, err := load("-", "印刷FORM"); err == nil {
		t.Error("expected an error for non-xlsx input")
	}
}

func TestExtractCommandMissingSheet(t *testing.T) {
	src := setup(t)
	out := filepath.Join(t.TempDir(), "output.json")

	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{src, "--sheet", "Sheet9", "-o", out})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "Sheet9") {
		t.Fatalf("expected sheet error, got %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("no output should be written on failure")
	}
}

func TestApplyOverrides(t *testing.T) {
	r := runner.New(nil, nil)
	job := runner.Job{Source: "cho.xlsx", Sheet: "印刷FORM", Output: "output.json"}

	Apply(r, &job, Options{Sheet: "Other", Output: "x.json", DryRun: true}, &bytes.Buffer{})
	if job.Sheet != "Other" || job.Output != "x.json" || !job.DryRun {
		t.Errorf("unexpected job: %+v", job)
	}

	var buf bytes.Buffer
	Apply(r, &job, Options{Stdout: true}, &buf)
	if job.Output != "-" {
		t.Errorf("stdout output should be '-', got %q", job.Output)
	}
	if err := r.Write(job.Output, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestReportDryRun(t *testing.T) {
	var buf bytes.Buffer
	res := &runner.Result{Source: "cho.xlsx", Sheet: "印刷FORM", Stats: ex.Stats{Kept: 3, Dropped: map[string]int{"missing": 2}}}
	Report(&buf, res, Options{DryRun: true})

	got := buf.String()
	if !strings.Contains(got, "Dry run: 3 records") || !strings.Contains(got, "dropped 2 missing") {
		t.Errorf("unexpected report: %q", got)
	}
}
