// Package config handles global nv configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/aidanlsb/nounverb/internal/atomicfile"
	"github.com/aidanlsb/nounverb/internal/discovery"
)

// AppName is the directory name used under the user's config directory.
const AppName = "nounverb"

// Config represents the global nv configuration.
type Config struct {
	// Search tunes discovery scoring.
	Search SearchConfig `toml:"search" json:"search"`

	// Log controls the structured logger.
	Log LogConfig `toml:"log" json:"log"`

	// Telemetry controls the local dispatch journal.
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Plugins controls manifest loading.
	Plugins PluginsConfig `toml:"plugins" json:"plugins"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui" json:"ui"`

	// path is the file the config was loaded from, if any.
	path string
}

// SearchConfig holds the discovery weights.
type SearchConfig struct {
	Exact               float64 `toml:"exact" json:"exact"`
	Prefix              float64 `toml:"prefix" json:"prefix"`
	ContainsName        float64 `toml:"contains_name" json:"contains_name"`
	ContainsDescription float64 `toml:"contains_description" json:"contains_description"`
	Category            float64 `toml:"category" json:"category"`
	Fuzzy               float64 `toml:"fuzzy" json:"fuzzy"`
	FuzzyThreshold      float64 `toml:"fuzzy_threshold" json:"fuzzy_threshold"`

	// SuggestLimit caps "did you mean" suggestions.
	SuggestLimit int `toml:"suggest_limit" json:"suggest_limit"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `toml:"level" json:"level"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress"`
}

// TelemetryConfig configures the dispatch journal.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`

	// Path of the sqlite journal; relative paths resolve against the config directory.
	Path string `toml:"path" json:"path"`
}

// PluginsConfig configures plugin manifest loading.
type PluginsConfig struct {
	// Dir holds *.yaml manifests; relative paths resolve against the config directory.
	Dir string `toml:"dir" json:"dir"`

	// Disabled lists manifest nouns to skip.
	Disabled []string `toml:"disabled" json:"disabled"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent" json:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	// Example values: "monokai", "dracula", "github", "nord".
	CodeTheme string `toml:"code_theme" json:"code_theme"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	w := discovery.DefaultWeights()
	return &Config{
		Search: SearchConfig{
			Exact:               w.Exact,
			Prefix:              w.Prefix,
			ContainsName:        w.ContainsName,
			ContainsDescription: w.ContainsDescription,
			Category:            w.Category,
			Fuzzy:               w.Fuzzy,
			FuzzyThreshold:      w.FuzzyThreshold,
			SuggestLimit:        3,
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Telemetry: TelemetryConfig{
			Path: "telemetry.db",
		},
		Plugins: PluginsConfig{
			Dir: "plugins",
		},
	}
}

// Weights returns the search section as discovery weights.
func (s SearchConfig) Weights() discovery.Weights {
	return discovery.Weights{
		Exact:               s.Exact,
		Prefix:              s.Prefix,
		ContainsName:        s.ContainsName,
		ContainsDescription: s.ContainsDescription,
		Category:            s.Category,
		Fuzzy:               s.Fuzzy,
		FuzzyThreshold:      s.FuzzyThreshold,
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Search.Weights().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.SuggestLimit < 0 {
		errs = append(errs, fmt.Errorf("search.suggest_limit must not be negative, got %d", c.Search.SuggestLimit))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits must not be negative"))
	}
	if c.Telemetry.Enabled && strings.TrimSpace(c.Telemetry.Path) == "" {
		errs = append(errs, errors.New("telemetry.path is required when telemetry is enabled"))
	}
	return errors.Join(errs...)
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadPath(DefaultPath())
}

// LoadPath loads path, returning defaults when it does not exist.
func LoadPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.path = path
		return cfg, nil
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path. Keys missing from the
// file keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.path = path
	return cfg, nil
}

// DefaultPath returns the default config file path.
// Checks ~/.config/nounverb/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if xdgPath, err := XDGPath(); err == nil {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, AppName, "config.toml")
	}

	// Last resort fallback
	return filepath.Join(".", "config.toml")
}

// XDGPath returns the XDG-style config path (~/.config/nounverb/config.toml).
func XDGPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// Resolve returns p as an absolute or config-relative path. Relative paths
// resolve against the directory of the loaded config file.
func (c *Config) Resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	base := c.path
	if base == "" {
		base = DefaultPath()
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(p))
}

// TelemetryPath returns the resolved journal path.
func (c *Config) TelemetryPath() string {
	return c.Resolve(c.Telemetry.Path)
}

// PluginDir returns the resolved plugin manifest directory.
func (c *Config) PluginDir() string {
	return c.Resolve(c.Plugins.Dir)
}

// PluginDisabled reports whether manifests for noun are switched off.
func (c *Config) PluginDisabled(noun string) bool {
	for _, d := range c.Plugins.Disabled {
		if strings.EqualFold(strings.TrimSpace(d), noun) {
			return true
		}
	}
	return false
}

const defaultConfig = `# nv configuration

# Discovery scoring. Every weight is in (0, 100]; fuzzy matches score
# ratio * fuzzy when the subsequence ratio exceeds fuzzy_threshold.
# [search]
# exact = 100.0
# prefix = 90.0
# contains_name = 80.0
# contains_description = 60.0
# category = 50.0
# fuzzy = 40.0
# fuzzy_threshold = 0.5
# suggest_limit = 3

# Logging. Without a file, logs go to stderr.
# [log]
# level = "warn"
# file = "~/.local/state/nounverb/nv.log"
# max_size_mb = 10
# max_backups = 3
# max_age_days = 28
# compress = false

# Local dispatch journal (sqlite).
# [telemetry]
# enabled = true
# path = "telemetry.db"

# Plugin manifests (*.yaml) registered after startup.
# [plugins]
# dir = "plugins"
# disabled = ["legacy"]

# Optional UI accent color for headers/links in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
# code_theme = "monokai"
`

// CreateDefault creates a default config file at path if it doesn't exist.
// It reports whether a file was written. force overwrites an existing file.
func CreateDefault(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	if err := atomicfile.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
