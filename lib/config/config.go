// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is not given.
const EnvironmentVariable = "BUREAU_KEYAGENT_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is a workstation agent.
	Development Environment = "development"
	// Staging is pre-production.
	Staging Environment = "staging"
	// Production is a deployed agent; logs default to JSON.
	Production Environment = "production"
)

// Log formats. FormatAuto picks text on a terminal and JSON otherwise.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the keyagent configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Agent   AgentConfig   `yaml:"agent"`
	Keyring KeyringConfig `yaml:"keyring"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`

	// directory holds the loaded file, for ${CONFIG_DIR}.
	directory string
}

// ConfigOverrides contains the sections an environment may override.
// Empty fields leave the base value alone.
type ConfigOverrides struct {
	Agent   *AgentConfig   `yaml:"agent,omitempty"`
	Keyring *KeyringConfig `yaml:"keyring,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// AgentConfig configures the socket server.
type AgentConfig struct {
	// SocketPath is where `serve` listens. `run` uses it when set and a
	// private temporary socket otherwise.
	SocketPath string `yaml:"socket_path"`

	// AcceptTimeout bounds each accept and therefore shutdown latency.
	// Default: 100ms
	AcceptTimeout string `yaml:"accept_timeout"`

	// IdleTimeout closes connections idle this long between requests.
	// "0" disables it. Default: 5m
	IdleTimeout string `yaml:"idle_timeout"`
}

// KeyringConfig locates the sealed keyring and the identity that opens
// it.
type KeyringConfig struct {
	Path         string `yaml:"path"`
	IdentityFile string `yaml:"identity_file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// ListenAddress serves /metrics when non-empty, e.g. "127.0.0.1:9464".
	ListenAddress string `yaml:"listen_address"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// Format is auto, text or json. Default: auto
	Format string `yaml:"format"`
}

// Default returns the development configuration used when no file is
// given and as the base a file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Agent: AgentConfig{
			SocketPath:    "${XDG_RUNTIME_DIR:-/tmp}/bureau-keyagent.sock",
			AcceptTimeout: "100ms",
			IdleTimeout:   "5m",
		},
		Keyring: KeyringConfig{
			Path:         "${HOME}/.config/bureau-keyagent/keyring",
			IdentityFile: "${HOME}/.config/bureau-keyagent/identity.txt",
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}

// Load loads the file named by BUREAU_KEYAGENT_CONFIG, or returns the
// defaults when the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		cfg := Default()
		cfg.applyEnvironmentOverrides()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults, applies the
// section for the configured environment and expands variables. It does
// not validate; callers validate after applying flag overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	c.directory = filepath.Dir(absolute)
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Level: "info", Format: FormatJSON},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Agent != nil {
		override(&c.Agent.SocketPath, overrides.Agent.SocketPath)
		override(&c.Agent.AcceptTimeout, overrides.Agent.AcceptTimeout)
		override(&c.Agent.IdleTimeout, overrides.Agent.IdleTimeout)
	}
	if overrides.Keyring != nil {
		override(&c.Keyring.Path, overrides.Keyring.Path)
		override(&c.Keyring.IdentityFile, overrides.Keyring.IdentityFile)
	}
	if overrides.Metrics != nil {
		override(&c.Metrics.ListenAddress, overrides.Metrics.ListenAddress)
	}
	if overrides.Log != nil {
		override(&c.Log.Level, overrides.Log.Level)
		override(&c.Log.Format, overrides.Log.Format)
	}
}

func override(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":       os.Getenv("HOME"),
		"CONFIG_DIR": c.directory,
	}

	c.Agent.SocketPath = expandVars(c.Agent.SocketPath, vars)
	c.Keyring.Path = expandVars(c.Keyring.Path, vars)
	c.Keyring.IdentityFile = expandVars(c.Keyring.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment; an empty value falls through to the
// default.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// AcceptTimeoutDuration returns agent.accept_timeout, or zero if it does not
// parse ([Config.Validate] reports that).
func (a AgentConfig) AcceptTimeoutDuration() time.Duration {
	duration, _ := time.ParseDuration(a.AcceptTimeout)
	return duration
}

// IdleTimeoutDuration returns agent.idle_timeout, or zero (disabled) if
// it is empty or does not parse.
func (a AgentConfig) IdleTimeoutDuration() time.Duration {
	duration, _ := time.ParseDuration(a.IdleTimeout)
	return duration
}

// SlogLevel returns the configured level, or info if it does not parse.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate reports every problem in the configuration, joined.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}

	if duration, err := time.ParseDuration(c.Agent.AcceptTimeout); err != nil {
		errs = append(errs, fmt.Errorf("agent.accept_timeout: %w", err))
	} else if duration <= 0 {
		errs = append(errs, fmt.Errorf("agent.accept_timeout must be positive, got %s", c.Agent.AcceptTimeout))
	}
	if c.Agent.IdleTimeout != "" {
		if duration, err := time.ParseDuration(c.Agent.IdleTimeout); err != nil {
			errs = append(errs, fmt.Errorf("agent.idle_timeout: %w", err))
		} else if duration < 0 {
			errs = append(errs, fmt.Errorf("agent.idle_timeout must not be negative, got %s", c.Agent.IdleTimeout))
		}
	}

	if c.Keyring.Path == "" {
		errs = append(errs, errors.New("keyring.path is required"))
	}
	if c.Keyring.IdentityFile == "" {
		errs = append(errs, errors.New("keyring.identity_file is required"))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	formats := []string{FormatAuto, FormatText, FormatJSON}
	if !slices.Contains(formats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}
