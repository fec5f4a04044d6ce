package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/klytics/chojson/internal/extract"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	UseFile("")
	t.Setenv("HOME", dir)
	t.Cleanup(func() {
		viper.Reset()
		UseFile("")
	})
	return dir
}

func TestLoadDefaults(t *testing.T) {
	setupTestConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Path != DefaultSource || cfg.Source.Sheet != DefaultSheet {
		t.Errorf("source = %q / %q", cfg.Source.Path, cfg.Source.Sheet)
	}
	if cfg.Output.Path != DefaultOutput {
		t.Errorf("output = %q", cfg.Output.Path)
	}
	if cfg.Exclude.Match != "substring" {
		t.Errorf("match = %q", cfg.Exclude.Match)
	}
	if len(cfg.Exclude.Phrases) != 1 || cfg.Exclude.Phrases[0] != extract.ExcludedSectionTitle {
		t.Errorf("phrases = %v", cfg.Exclude.Phrases)
	}
	if cfg.Watch.DebounceMs != DefaultDebounce {
		t.Errorf("debounce = %d", cfg.Watch.DebounceMs)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	setupTestConfig(t)
	t.Setenv("CHOJSON_SOURCE_SHEET", "Sheet2")
	t.Setenv("CHOJSON_LAYOUT_PRIMARY_KEY", "B")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Sheet != "Sheet2" {
		t.Errorf("sheet = %q, want Sheet2", cfg.Source.Sheet)
	}
	if cfg.Layout.Primary.Key != "B" {
		t.Errorf("primary key = %q, want B", cfg.Layout.Primary.Key)
	}
}

func TestLoadDotEnv(t *testing.T) {
	setupTestConfig(t)
	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, ".env"), []byte("CHOJSON_OUTPUT_PATH=from-dotenv.json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, _ := os.Getwd()
	if err := os.Chdir(work); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("CHOJSON_OUTPUT_PATH")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Path != "from-dotenv.json" {
		t.Errorf("output = %q, want from-dotenv.json", cfg.Output.Path)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := setupTestConfig(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "source:\n  sheet: Other\nexclude:\n  match: exact\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	UseFile(path)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.Sheet != "Other" || cfg.Exclude.Match != "exact" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if ConfigPath() != path {
		t.Errorf("ConfigPath = %q, want %q", ConfigPath(), path)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	dir := setupTestConfig(t)
	UseFile(filepath.Join(dir, "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestExtractLayout(t *testing.T) {
	setupTestConfig(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	l, err := cfg.ExtractLayout()
	if err != nil {
		t.Fatal(err)
	}
	def := extract.DefaultLayout()
	if l.HeaderRows != def.HeaderRows || len(l.Groups) != 2 {
		t.Fatalf("unexpected layout: %+v", l)
	}
	for i := range def.Groups {
		if l.Groups[i].KeyColumn != def.Groups[i].KeyColumn {
			t.Errorf("group %d key = %d, want %d", i, l.Groups[i].KeyColumn, def.Groups[i].KeyColumn)
		}
	}

	cfg.Layout.Primary.Values = "F:H"
	if _, err := cfg.ExtractLayout(); err == nil {
		t.Error("expected error for three value columns")
	}
}

func TestSetAndGet(t *testing.T) {
	dir := setupTestConfig(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	if err := Set("source.sheet", "Sheet9"); err != nil {
		t.Fatal(err)
	}
	if got := Get("source.sheet"); got != "Sheet9" {
		t.Errorf("Get(source.sheet) = %q", got)
	}

	if err := Set("exclude.phrases", "見出し, 合計"); err != nil {
		t.Fatal(err)
	}
	if got := Get("exclude.phrases"); got != "見出し,合計" {
		t.Errorf("Get(exclude.phrases) = %q", got)
	}

	if _, err := os.Stat(filepath.Join(dir, ".chojson", "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestResetConfig(t *testing.T) {
	setupTestConfig(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if err := Set("output.path", "elsewhere.json"); err != nil {
		t.Fatal(err)
	}

	if err := ResetConfig(); err != nil {
		t.Fatal(err)
	}
	if got := viper.GetString("output.path"); got != DefaultOutput {
		t.Errorf("output.path should reset to default, got %q", got)
	}
	if _, err := os.Stat(ConfigPath()); !os.IsNotExist(err) {
		t.Error("config file should be removed")
	}
}

func TestToEnv(t *testing.T) {
	setupTestConfig(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	env := ToEnv()
	if env["CHOJSON_SOURCE_SHEET"] != DefaultSheet {
		t.Errorf("CHOJSON_SOURCE_SHEET = %q", env["CHOJSON_SOURCE_SHEET"])
	}
	if env["CHOJSON_LAYOUT_SECONDARY_VALUES"] != "O:R" {
		t.Errorf("CHOJSON_LAYOUT_SECONDARY_VALUES = %q", env["CHOJSON_LAYOUT_SECONDARY_VALUES"])
	}
	if env["CHOJSON_EXCLUDE_PHRASES"] != extract.ExcludedSectionTitle {
		t.Errorf("CHOJSON_EXCLUDE_PHRASES = %q", env["CHOJSON_EXCLUDE_PHRASES"])
	}
}

func TestValidate(t *testing.T) {
	setupTestConfig(t)
	viper.Set("source.path", "/nonexistent/cho.xlsx")
	viper.Set("layout.secondary.values", "O:P")

	issues := Validate()
	var layoutErr, sourceWarn bool
	for _, issue := range issues {
		if issue.Key == "layout" && issue.Severity == "error" {
			layoutErr = true
		}
		if issue.Key == "source.path" && issue.Severity == "warning" {
			sourceWarn = true
		}
	}
	if !layoutErr {
		t.Error("expected layout error")
	}
	if !sourceWarn {
		t.Error("expected missing source warning")
	}
}

func TestShowConfig(t *testing.T) {
	setupTestConfig(t)
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	out := ShowConfig()
	if !strings.Contains(out, DefaultSheet) {
		t.Error("ShowConfig should contain the sheet name")
	}
	if !strings.Contains(out, "E → F:I") {
		t.Error("ShowConfig should contain the primary layout")
	}

	y, err := ShowYAML()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(y, "sheet: 印刷FORM") {
		t.Errorf("ShowYAML missing sheet:\n%s", y)
	}
}
