// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/keyagent/lib/config"
	"github.com/bureau-foundation/keyagent/lib/keyring"
	"github.com/bureau-foundation/keyagent/lib/secret"
)

// commonFlags are the configuration overrides every subcommand accepts.
type commonFlags struct {
	configPath   string
	keyringPath  string
	identityFile string
	logLevel     string
}

func (c *commonFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "path to the YAML config file (default $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&c.keyringPath, "keyring", "", "path to the sealed keyring (overrides keyring.path)")
	flagSet.StringVar(&c.identityFile, "identity", "", "age identity file that opens the keyring, or - for stdin (overrides keyring.identity_file)")
	flagSet.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
}

// load reads the config file (or defaults), applies flag overrides and
// validates the result.
func (c *commonFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if c.keyringPath != "" {
		cfg.Keyring.Path = c.keyringPath
	}
	if c.identityFile != "" {
		cfg.Keyring.IdentityFile = c.identityFile
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newFlagSet creates a subcommand flag set that reports errors instead
// of exiting and prints usage to stderr.
func newFlagSet(name, usage string, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s %s\n\nFlags:\n", binaryName, usage)
		flagSet.PrintDefaults()
	}
	return flagSet
}

// parseFlags parses args, turning --help into a nil error with done set.
func parseFlags(flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// openKeyring reads the identity and opens the configured keyring. The
// identity buffer is closed before returning.
func openKeyring(cfg *config.Config, logger *slog.Logger) (*keyring.Keyring, error) {
	identity, err := secret.ReadFromPath(cfg.Keyring.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("reading age identity: %w", err)
	}
	defer identity.Close()

	opened, err := keyring.Open(cfg.Keyring.Path, identity, keyring.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening keyring %s: %w", cfg.Keyring.Path, err)
	}
	return opened, nil
}
