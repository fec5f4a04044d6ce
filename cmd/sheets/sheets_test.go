package sheets

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/chojson/internal/formats/xlsx"
	"github.com/klytics/chojson/internal/grid"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cho.xlsx")
	g := grid.New([][]grid.Cell{
		{grid.TextCell("町名"), grid.TextCell("世帯数")},
		{grid.TextCell("上京区"), grid.NumberCell(12345)},
		{grid.TextCell("中京区"), grid.NumberCell(67890)},
	})
	if err := xlsx.WriteGrid(path, "印刷FORM", g); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSheetsListsNames(t *testing.T) {
	path := writeWorkbook(t)

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{path})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(buf.String(), "印刷FORM") {
		t.Errorf("expected sheet name in output, got %q", buf.String())
	}
}

func TestSheetsPreview(t *testing.T) {
	path := writeWorkbook(t)

	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{path, "--preview", "印刷FORM", "--rows", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	for _, want := range []string{"A", "B", "上京区", "12345", "(2 of 3 rows)"} {
		if !strings.Contains(got, want) {
			t.Errorf("preview missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "中京区") {
		t.Error("preview should stop after --rows")
	}
}

func TestSheetsMissingFile(t *testing.T) {
	cmd := NewCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.xlsx")})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing workbook")
	}
}

func TestPrintRowTruncatesByRune(t *testing.T) {
	var buf bytes.Buffer
	printRow(&buf, []string{"京都市住民基本台帳"}, []int{4}, nil)
	if !strings.Contains(buf.String(), "京都市~") {
		t.Errorf("unexpected truncation: %q", buf.String())
	}
}
