// Package config provides configuration management for devwatch.
//
// Configuration is loaded from three sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DEVWATCH_ prefix)
//  3. Config file (.devwatch.yaml)
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/devwatch/internal/action"
	"github.com/hupe1980/devwatch/internal/profile"
)

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config represents the global configuration for devwatch.
type Config struct {
	// LogLevel controls the verbosity of log output.
	// Valid values: debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" yaml:"log-format"`

	// NoColor disables colored output.
	NoColor bool `mapstructure:"no-color" yaml:"no-color"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`

	// Profile names the watch preset.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// Action overrides the profile's rebuild action.
	Action string `mapstructure:"action" yaml:"action,omitempty"`

	// Patterns override the profile's watch globs.
	Patterns []string `mapstructure:"patterns" yaml:"patterns,omitempty"`

	// Ignore adds globs that never trigger a rebuild.
	Ignore []string `mapstructure:"ignore" yaml:"ignore,omitempty"`

	// Target overrides the file touched by touch actions.
	Target string `mapstructure:"target" yaml:"target,omitempty"`

	// BuildCommand overrides the shell command run by build actions.
	BuildCommand string `mapstructure:"build-command" yaml:"build-command,omitempty"`

	// Dir is the project root.
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Debounce coalesces bursts of changes. Zero disables it.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`

	// Concurrency limits simultaneous rebuilds.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// Timeout bounds each build command. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Initial runs the action once at startup.
	Initial bool `mapstructure:"initial" yaml:"initial"`

	// Requires is a semver constraint the devwatch version must satisfy.
	Requires string `mapstructure:"requires" yaml:"requires,omitempty"`

	// Profiles defines custom profiles by name.
	Profiles map[string]profile.Profile `mapstructure:"profiles" yaml:"profiles,omitempty"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load(), not read from config itself.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel:    LogLevelInfo,
		LogFormat:   LogFormatText,
		Profile:     profile.DefaultProfile,
		Dir:         ".",
		Concurrency: 1,
	}
}

// Validate checks that all config values are valid.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// valid
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
		// valid
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	if c.Action != "" && !validAction(c.Action) {
		return fmt.Errorf("invalid action %q: must be one of %s", c.Action, strings.Join(action.Kinds(), ", "))
	}

	for name, p := range c.Profiles {
		if p.Action != "" && !validAction(p.Action) {
			return fmt.Errorf("profiles[%s]: invalid action %q", name, p.Action)
		}
	}

	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency %d: must be at least 1", c.Concurrency)
	}

	if c.Debounce < 0 {
		return fmt.Errorf("invalid debounce %s: must not be negative", c.Debounce)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s: must not be negative", c.Timeout)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Settings resolves the configured profile and overrides.
func (c *Config) Settings() (*profile.Settings, error) {
	return profile.Resolve(c.Profile, c.Profiles, profile.Overrides{
		Dir:          c.Dir,
		Patterns:     c.Patterns,
		Ignore:       c.Ignore,
		Action:       c.Action,
		Target:       c.Target,
		BuildCommand: c.BuildCommand,
	})
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("no-color", false)
	v.SetDefault("quiet", false)
	v.SetDefault("profile", d.Profile)
	v.SetDefault("action", "")
	v.SetDefault("patterns", []string{})
	v.SetDefault("ignore", []string{})
	v.SetDefault("target", "")
	v.SetDefault("build-command", "")
	v.SetDefault("requires", "")
	v.SetDefault("dir", d.Dir)
	v.SetDefault("debounce", time.Duration(0))
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("initial", false)
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("DEVWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".devwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "devwatch"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds the command's own flags and every persistent flag up to
// the root.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

func validAction(kind string) bool {
	for _, k := range action.Kinds() {
		if k == kind {
			return true
		}
	}

	return false
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
