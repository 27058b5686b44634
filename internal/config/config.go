// Package config loads the optional .codegraph.yaml project file. Values
// from the file sit under command-line arguments: the CLI applies its own
// flags on top of what Load returns.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up in the indexed root.
const FileName = ".codegraph.yaml"

// Export formats.
const (
	FormatJSON   = "json"
	FormatSQLite = "sqlite"
)

// DefaultOutput is the export path used when none is given.
const DefaultOutput = "code_graph.json"

// DefaultDebounce is the watch mode quiet period.
const DefaultDebounce = 500 * time.Millisecond

// Config is the decoded project file.
type Config struct {
	Workers       int         `yaml:"workers"`
	Output        string      `yaml:"output"`
	Format        string      `yaml:"format"`
	LogLevel      string      `yaml:"log_level"`
	Languages     []string    `yaml:"languages"`
	Exclude       []string    `yaml:"exclude"`
	NoGit         bool        `yaml:"no_git"`
	SummaryScript string      `yaml:"summary_script"`
	Watch         WatchConfig `yaml:"watch"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Output:   DefaultOutput,
		Format:   FormatJSON,
		LogLevel: "info",
		Watch:    WatchConfig{Debounce: DefaultDebounce},
	}
}

// Load reads and validates the config file at path. Unset fields keep
// their defaults. A relative summary_script is resolved against the
// directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	cfg.Path = abs
	if cfg.SummaryScript != "" && !filepath.IsAbs(cfg.SummaryScript) {
		cfg.SummaryScript = filepath.Join(filepath.Dir(abs), cfg.SummaryScript)
	}
	return cfg, nil
}

// Parse decodes a config document over the defaults. Unknown keys are an
// error so typos do not pass silently.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ForRoot loads the config for an index run. An explicit path must exist;
// otherwise root/.codegraph.yaml is used when present and defaults when not.
func ForRoot(root, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}
	return Load(path)
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if _, ok := ParseFormat(c.Format); !ok {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0, got %s", c.Watch.Debounce)
	}
	return nil
}

// ParseFormat normalizes an export format name.
func ParseFormat(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case FormatJSON:
		return FormatJSON, true
	case FormatSQLite, "sqlite3", "db":
		return FormatSQLite, true
	}
	return "", false
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
