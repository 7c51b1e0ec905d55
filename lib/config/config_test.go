// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keyagent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if got := cfg.Agent.AcceptTimeoutDuration(); got != 100*time.Millisecond {
		t.Errorf("accept timeout = %v, want 100ms", got)
	}
	if got := cfg.Agent.IdleTimeoutDuration(); got != 5*time.Minute {
		t.Errorf("idle timeout = %v, want 5m", got)
	}
	if cfg.Log.Format != FormatAuto {
		t.Errorf("log format = %q, want auto", cfg.Log.Format)
	}
	if cfg.Metrics.ListenAddress != "" {
		t.Errorf("metrics enabled by default at %q", cfg.Metrics.ListenAddress)
	}
}

func TestLoad_WithoutVariableUsesDefaults(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.SocketPath != "/run/user/1000/bureau-keyagent.sock" {
		t.Errorf("socket path = %q", cfg.Agent.SocketPath)
	}
	if cfg.Keyring.Path != "/home/tester/.config/bureau-keyagent/keyring" {
		t.Errorf("keyring path = %q", cfg.Keyring.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_SocketDefaultWithoutRuntimeDir(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	t.Setenv("XDG_RUNTIME_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.SocketPath != "/tmp/bureau-keyagent.sock" {
		t.Errorf("socket path = %q, want /tmp/bureau-keyagent.sock", cfg.Agent.SocketPath)
	}
}

func TestLoad_WithVariable(t *testing.T) {
	path := writeConfig(t, `
environment: staging
agent:
  socket_path: /test/agent.sock
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("environment = %s, want staging", cfg.Environment)
	}
	if cfg.Agent.SocketPath != "/test/agent.sock" {
		t.Errorf("socket path = %q", cfg.Agent.SocketPath)
	}
	// Unset fields keep their defaults.
	if cfg.Agent.IdleTimeout != "5m" {
		t.Errorf("idle timeout = %q, want default 5m", cfg.Agent.IdleTimeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: development
agent:
  socket_path: ${CONFIG_DIR}/agent.sock
  accept_timeout: 250ms
  idle_timeout: "0"
keyring:
  path: ${CONFIG_DIR}/keyring
  identity_file: ${KEYAGENT_TEST_SECRETS:-/etc/keyagent}/identity.txt
metrics:
  listen_address: 127.0.0.1:9464
log:
  level: debug
  format: text
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	directory := filepath.Dir(path)
	if cfg.Agent.SocketPath != filepath.Join(directory, "agent.sock") {
		t.Errorf("socket path = %q", cfg.Agent.SocketPath)
	}
	if cfg.Keyring.Path != filepath.Join(directory, "keyring") {
		t.Errorf("keyring path = %q", cfg.Keyring.Path)
	}
	if cfg.Keyring.IdentityFile != "/etc/keyagent/identity.txt" {
		t.Errorf("identity file = %q", cfg.Keyring.IdentityFile)
	}
	if cfg.Agent.AcceptTimeoutDuration() != 250*time.Millisecond {
		t.Errorf("accept timeout = %v", cfg.Agent.AcceptTimeoutDuration())
	}
	if cfg.Agent.IdleTimeoutDuration() != 0 {
		t.Errorf("idle timeout = %v, want disabled", cfg.Agent.IdleTimeoutDuration())
	}
	if cfg.Metrics.ListenAddress != "127.0.0.1:9464" {
		t.Errorf("metrics address = %q", cfg.Metrics.ListenAddress)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug || cfg.Log.Format != FormatText {
		t.Errorf("log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile of a missing file succeeded")
	}
	if _, err := LoadFile(writeConfig(t, "agent: [unclosed")); err == nil {
		t.Error("LoadFile of invalid YAML succeeded")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: production
agent:
  socket_path: /base/agent.sock
log:
  level: debug
production:
  agent:
    socket_path: /run/keyagent/agent.sock
  metrics:
    listen_address: :9464
  log:
    format: json
staging:
  agent:
    socket_path: /staging/agent.sock
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Agent.SocketPath != "/run/keyagent/agent.sock" {
		t.Errorf("socket path = %q, want production override", cfg.Agent.SocketPath)
	}
	if cfg.Metrics.ListenAddress != ":9464" {
		t.Errorf("metrics address = %q", cfg.Metrics.ListenAddress)
	}
	// Fields the override leaves empty keep the base value.
	if cfg.Log.Level != "debug" || cfg.Log.Format != FormatJSON {
		t.Errorf("log = %+v, want debug/json", cfg.Log)
	}
}

func TestProductionDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "environment: production\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Log.Format != FormatJSON {
		t.Errorf("production log format = %q, want json", cfg.Log.Format)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("KEYAGENT_TEST_SET", "from-env")
	t.Setenv("KEYAGENT_TEST_EMPTY", "")
	vars := map[string]string{"HOME": "/home/tester", "EMPTY_VAR": ""}

	tests := []struct {
		input string
		want  string
	}{
		{"${HOME}/keyring", "/home/tester/keyring"},
		{"${KEYAGENT_TEST_SET}/x", "from-env/x"},
		{"${KEYAGENT_TEST_EMPTY:-fallback}", "fallback"},
		{"${EMPTY_VAR:-fallback}", "fallback"},
		{"${KEYAGENT_TEST_UNSET_VARIABLE}", ""},
		{"no variables", "no variables"},
		{"$HOME", "$HOME"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"environment", func(c *Config) { c.Environment = "moon" }, "invalid environment"},
		{"accept timeout syntax", func(c *Config) { c.Agent.AcceptTimeout = "soon" }, "agent.accept_timeout"},
		{"accept timeout zero", func(c *Config) { c.Agent.AcceptTimeout = "0s" }, "must be positive"},
		{"idle timeout negative", func(c *Config) { c.Agent.IdleTimeout = "-1s" }, "must not be negative"},
		{"keyring path", func(c *Config) { c.Keyring.Path = "" }, "keyring.path is required"},
		{"identity file", func(c *Config) { c.Keyring.IdentityFile = "" }, "keyring.identity_file is required"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Validate = %v, want mention of %q", err, test.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Keyring.Path = ""
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate succeeded")
	}
	for _, want := range []string{"keyring.path", "log.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate = %v, missing %q", err, want)
		}
	}
}

func TestSlogLevelFallback(t *testing.T) {
	if got := (LogConfig{Level: "nonsense"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("SlogLevel = %v, want info", got)
	}
	if got := (LogConfig{Level: "warn"}).SlogLevel(); got != slog.LevelWarn {
		t.Errorf("SlogLevel = %v, want warn", got)
	}
}
