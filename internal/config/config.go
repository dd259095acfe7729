// Package config loads the per-project .godotcheck.yaml settings.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/godotcheck"
	"github.com/jward/godotcheck/internal/project"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project root.
const FileName = ".godotcheck.yaml"

// EnvPrefix prefixes environment overrides, e.g. GODOTCHECK_MIN_SEVERITY
// or GODOTCHECK_HISTORY_ENABLED.
const EnvPrefix = "GODOTCHECK"

// Config holds project-level analyzer settings.
type Config struct {
	Checks      []string      `yaml:"checks" mapstructure:"checks"`
	MinSeverity string        `yaml:"min_severity" mapstructure:"min_severity"`
	Exclude     []string      `yaml:"exclude" mapstructure:"exclude"`
	RulesDir    string        `yaml:"rules_dir" mapstructure:"rules_dir"`
	History     HistoryConfig `yaml:"history" mapstructure:"history"`
}

// HistoryConfig controls the analysis history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
	Keep    int    `yaml:"keep" mapstructure:"keep"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Checks:      append([]string(nil), godotcheck.AllChecks...),
		MinSeverity: "info",
		Exclude:     []string{},
		RulesDir:    ".godotcheck/rules",
		History: HistoryConfig{
			Enabled: false,
			Path:    godotcheck.DefaultHistoryPath,
			Keep:    50,
		},
	}
}

// Load reads FileName from root, layering environment overrides on top of
// the file and the defaults. A missing file is not an error.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	def := DefaultConfig()
	v.SetDefault("checks", def.Checks)
	v.SetDefault("min_severity", def.MinSeverity)
	v.SetDefault("exclude", def.Exclude)
	v.SetDefault("rules_dir", def.RulesDir)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("history.keep", def.History.Keep)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown check names and severities.
func (c *Config) Validate() error {
	known := make(map[string]bool, len(godotcheck.AllChecks))
	for _, name := range godotcheck.AllChecks {
		known[name] = true
	}
	for _, name := range c.Checks {
		if !known[name] {
			return fmt.Errorf("config: unknown check %q (valid: %s)", name, strings.Join(godotcheck.AllChecks, ", "))
		}
	}
	if _, err := godotcheck.ParseSeverity(c.MinSeverity); err != nil {
		return fmt.Errorf("config: min_severity: %w", err)
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("config: history.keep must not be negative")
	}
	return nil
}

// Severity returns the parsed minimum severity.
func (c *Config) Severity() godotcheck.Severity {
	sev, _ := godotcheck.ParseSeverity(c.MinSeverity)
	return sev
}

// HistoryPath resolves the history database path against root.
func (c *Config) HistoryPath(root string) string {
	if filepath.IsAbs(c.History.Path) {
		return c.History.Path
	}
	return filepath.Join(root, filepath.FromSlash(c.History.Path))
}

// Options converts the settings into analyzer options.
func (c *Config) Options() []godotcheck.Option {
	opts := []godotcheck.Option{
		godotcheck.WithChecks(c.Checks...),
		godotcheck.WithMinSeverity(c.Severity()),
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, godotcheck.WithExcludes(c.Exclude...))
	}
	if c.RulesDir != "" {
		opts = append(opts, godotcheck.WithRulesDir(c.RulesDir))
	}
	return opts
}

// SaveConfig writes cfg as YAML to path.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := project.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
