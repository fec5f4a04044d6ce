package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// listKeys hold comma-separated lists when set from the command line.
var listKeys = map[string]bool{
	"exclude.phrases": true,
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	cfg, err := Load()
	if err != nil {
		return []ConfigIssue{{
			Key:      "config",
			Severity: "error",
			Message:  err.Error(),
			Fix:      "chojson config reset",
		}}
	}

	if _, err := cfg.ExtractLayout(); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "layout",
			Severity: "error",
			Message:  err.Error(),
			Fix:      "chojson config set layout.primary.values F:I",
		})
	} else {
		issues = append(issues, ConfigIssue{
			Key:      "layout",
			Severity: "info",
			Message: fmt.Sprintf("primary %s → %s, secondary %s → %s",
				cfg.Layout.Primary.Key, cfg.Layout.Primary.Values,
				cfg.Layout.Secondary.Key, cfg.Layout.Secondary.Values),
		})
	}

	if cfg.Source.Sheet == "" {
		issues = append(issues, ConfigIssue{
			Key:      "source.sheet",
			Severity: "error",
			Message:  "source sheet is empty",
			Fix:      fmt.Sprintf("chojson config set source.sheet %s", DefaultSheet),
		})
	}

	if _, err := os.Stat(cfg.Source.Path); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "source.path",
			Severity: "warning",
			Message:  fmt.Sprintf("source workbook %s not found; pass a path to 'chojson extract'", cfg.Source.Path),
			Fix:      "chojson config set source.path /path/to/cho.xlsx",
		})
	}

	if dir := filepath.Dir(cfg.Output.Path); dir != "." {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			issues = append(issues, ConfigIssue{
				Key:      "output.path",
				Severity: "error",
				Message:  fmt.Sprintf("output directory %s does not exist", dir),
				Fix:      fmt.Sprintf("mkdir -p %s", dir),
			})
		}
	}

	if cfg.Exclude.Match == "substring" {
		issues = append(issues, ConfigIssue{
			Key:      "exclude.match",
			Severity: "info",
			Message:  fmt.Sprintf("keys containing %q anywhere are dropped", cfg.Layout.MissingKey),
			Fix:      "chojson config set exclude.match exact",
		})
	}

	return issues
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range viper.AllKeys() {
		name := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if listKeys[key] {
			env[name] = strings.Join(viper.GetStringSlice(key), ",")
			continue
		}
		if v := viper.GetString(key); v != "" {
			env[name] = v
		}
	}
	return env
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		viper.Set(key, items)
	} else {
		viper.Set(key, value)
	}
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	if listKeys[key] {
		return strings.Join(viper.GetStringSlice(key), ",")
	}
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	viper.Reset()
	setDefaults()
	return nil
}

// SaveConfig writes the current config to ~/.chojson/config.yaml.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(configDir(), configName+".yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("Source\n")
	sb.WriteString(fmt.Sprintf("  path:      %s\n", viper.GetString("source.path")))
	sb.WriteString(fmt.Sprintf("  sheet:     %s\n", viper.GetString("source.sheet")))
	sb.WriteString("\n")

	sb.WriteString("Output\n")
	sb.WriteString(fmt.Sprintf("  path:      %s\n", viper.GetString("output.path")))
	sb.WriteString("\n")

	sb.WriteString("Layout\n")
	sb.WriteString(fmt.Sprintf("  header:    %d row(s)\n", viper.GetInt("layout.header_rows")))
	sb.WriteString(fmt.Sprintf("  primary:   %s → %s\n", viper.GetString("layout.primary.key"), viper.GetString("layout.primary.values")))
	sb.WriteString(fmt.Sprintf("  secondary: %s → %s\n", viper.GetString("layout.secondary.key"), viper.GetString("layout.secondary.values")))
	sb.WriteString("\n")

	sb.WriteString("Exclude\n")
	sb.WriteString(fmt.Sprintf("  match:     %s %q\n", viper.GetString("exclude.match"), viper.GetString("layout.missing_key")))
	for _, p := range viper.GetStringSlice("exclude.phrases") {
		sb.WriteString(fmt.Sprintf("  phrase:    %s\n", p))
	}
	sb.WriteString("\n")

	if viper.GetBool("audit.enabled") {
		sb.WriteString("Audit\n")
		sb.WriteString(fmt.Sprintf("  path:      %s\n", viper.GetString("audit.path")))
		sb.WriteString("\n")
	}

	return sb.String()
}

// ShowYAML renders every effective setting as YAML. Map keys come out sorted.
func ShowYAML() (string, error) {
	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return "", fmt.Errorf("could not encode settings: %w", err)
	}
	return string(data), nil
}
