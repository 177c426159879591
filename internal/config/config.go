// Package config loads the i18nsync configuration.
//
// Configuration is read with viper from i18nsync.yaml (or .yml, .toml,
// .json) in the working directory or .i18nsync/, from I18NSYNC_* environment
// variables, and from command-line flags bound by the CLI:
//
//	database: .i18nsync/records.db
//	debounce: 200ms
//	workers: 4
//	languages:
//	  default: en
//	  available: [en, de]
//	sources:
//	  - kind: message
//	    path: .cache/messages
//	  - kind: translation
//	    path: translations
//	    priority: 1
//	    transformers: [json, yaml, toml]
//
// Relative paths are resolved against the directory of the config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gpml/i18nsync/internal/record"
	"github.com/gpml/i18nsync/internal/transform"
)

// EnvPrefix is the prefix of environment variables overriding config keys.
// I18NSYNC_DATABASE overrides database, I18NSYNC_DASHBOARD_PORT overrides
// dashboard.port.
const EnvPrefix = "I18NSYNC"

// Config is the complete application configuration.
type Config struct {
	Database  string          `mapstructure:"database"`
	Debounce  time.Duration   `mapstructure:"debounce"`
	Workers   int             `mapstructure:"workers"`
	Languages Languages       `mapstructure:"languages"`
	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Sources   []Source        `mapstructure:"sources"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Languages lists the languages the site is translated into.
type Languages struct {
	Default   string   `mapstructure:"default"`
	Available []string `mapstructure:"available"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DashboardConfig configures the WebSocket dashboard.
type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

// Source is one watched directory.
type Source struct {
	Name         string   `mapstructure:"name"`
	Kind         string   `mapstructure:"kind"`
	Path         string   `mapstructure:"path"`
	Priority     int      `mapstructure:"priority"`
	Transformers []string `mapstructure:"transformers"`
}

// RecordKind returns the parsed source kind.
func (s Source) RecordKind() record.Kind {
	k, _ := record.ParseKind(s.Kind)
	return k
}

// Registry builds the transformer registry of the source.
func (s Source) Registry() (*transform.Registry, error) {
	return transform.ByName(s.Transformers...)
}

// ErrInvalid is wrapped by every *ValidationError.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInvalid.Error())
	b.WriteString(":")
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default value of every scalar key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database", filepath.Join(".i18nsync", "records.db"))
	v.SetDefault("debounce", 200*time.Millisecond)
	v.SetDefault("workers", 4)
	v.SetDefault("languages.default", "en")
	v.SetDefault("languages.available", []string{})
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("dashboard.port", 8080)
}

// Load reads the configuration. When file is empty the standard locations
// are searched and a missing file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("i18nsync")
		v.AddConfigPath(".")
		v.AddConfigPath(".i18nsync")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	baseDir := "."
	if cfg.File != "" {
		baseDir = filepath.Dir(cfg.File)
	}
	if err := cfg.Normalize(baseDir); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills derived defaults and resolves paths against baseDir.
func (c *Config) Normalize(baseDir string) error {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", baseDir, err)
	}

	if c.Database != "" {
		c.Database = resolve(base, c.Database)
	}
	if c.Log.File != "" {
		c.Log.File = resolve(base, c.Log.File)
	}

	c.Languages.Default = strings.TrimSpace(c.Languages.Default)
	if c.Languages.Default != "" && !contains(c.Languages.Available, c.Languages.Default) {
		c.Languages.Available = append([]string{c.Languages.Default}, c.Languages.Available...)
	}

	seen := make(map[string]int)
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		if s.Path != "" {
			s.Path = resolve(base, s.Path)
		}
		if len(s.Transformers) == 0 {
			s.Transformers = defaultTransformers(s.Kind)
		}
		if s.Name == "" && s.Kind != "" {
			seen[s.Kind]++
			s.Name = s.Kind + "s"
			if n := seen[s.Kind]; n > 1 {
				s.Name = fmt.Sprintf("%ss-%d", s.Kind, n)
			}
		}
	}
	return nil
}

func defaultTransformers(kind string) []string {
	if kind == string(record.KindMessage) {
		return []string{"json"}
	}
	return []string{"json", "yaml"}
}

func resolve(base, path string) string {
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
