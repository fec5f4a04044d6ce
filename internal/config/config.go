// Package config manages application configuration from files, .env and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/klytics/chojson/internal/extract"
)

// Defaults for the town population workbook.
const (
	DefaultSource    = "./cho_202501.xlsx"
	DefaultSheet     = "印刷FORM"
	DefaultOutput    = "output.json"
	DefaultDebounce  = 500
	envPrefix        = "CHOJSON"
	configName       = "config"
	configDirName    = ".chojson"
	auditLogFileName = "audit.log"
)

// GroupConfig locates one key column and its value columns by letter.
type GroupConfig struct {
	Key    string `mapstructure:"key" yaml:"key"`
	Values string `mapstructure:"values" yaml:"values"`
}

// Config holds the application configuration.
type Config struct {
	Source struct {
		Path  string `mapstructure:"path"`
		Sheet string `mapstructure:"sheet"`
	} `mapstructure:"source"`
	Output struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"output"`
	Layout struct {
		HeaderRows int         `mapstructure:"header_rows"`
		MissingKey string      `mapstructure:"missing_key"`
		Primary    GroupConfig `mapstructure:"primary"`
		Secondary  GroupConfig `mapstructure:"secondary"`
	} `mapstructure:"layout"`
	Exclude struct {
		Match   string   `mapstructure:"match"`
		Phrases []string `mapstructure:"phrases"`
	} `mapstructure:"exclude"`
	Audit struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"audit"`
	Watch struct {
		DebounceMs int `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
}

var configFile string

// UseFile makes Load read path instead of ~/.chojson/config.yaml.
func UseFile(path string) {
	configFile = path
}

// Load reads .env from the working directory, then the config file and
// CHOJSON_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("could not read .env: %w", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
	}

	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default file is fine; an explicit --config must exist.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("source.path", DefaultSource)
	viper.SetDefault("source.sheet", DefaultSheet)
	viper.SetDefault("output.path", DefaultOutput)
	viper.SetDefault("layout.header_rows", 1)
	viper.SetDefault("layout.missing_key", "nan")
	viper.SetDefault("layout.primary.key", "E")
	viper.SetDefault("layout.primary.values", "F:I")
	viper.SetDefault("layout.secondary.key", "N")
	viper.SetDefault("layout.secondary.values", "O:R")
	viper.SetDefault("exclude.match", string(extract.MatchSubstring))
	viper.SetDefault("exclude.phrases", []string{extract.ExcludedSectionTitle})
	viper.SetDefault("audit.enabled", true)
	viper.SetDefault("audit.path", filepath.Join(configDir(), auditLogFileName))
	viper.SetDefault("watch.debounce_ms", DefaultDebounce)
}

// ExtractLayout builds the extraction layout from the configured columns.
func (c *Config) ExtractLayout() (extract.Layout, error) {
	primary, err := extract.NewGroup("primary", c.Layout.Primary.Key, c.Layout.Primary.Values)
	if err != nil {
		return extract.Layout{}, fmt.Errorf("layout.primary: %w", err)
	}
	secondary, err := extract.NewGroup("secondary", c.Layout.Secondary.Key, c.Layout.Secondary.Values)
	if err != nil {
		return extract.Layout{}, fmt.Errorf("layout.secondary: %w", err)
	}

	l := extract.Layout{
		HeaderRows: c.Layout.HeaderRows,
		Groups:     []extract.Group{primary, secondary},
		MissingKey: c.Layout.MissingKey,
		Exclude: extract.Exclude{
			Match:   extract.MatchMode(c.Exclude.Match),
			Phrases: c.Exclude.Phrases,
		},
	}
	if err := l.Validate(); err != nil {
		return extract.Layout{}, err
	}
	return l, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(home, configDirName)
}
