// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/keyagent/agent"
	"github.com/bureau-foundation/keyagent/lib/lifecycle"
	"github.com/bureau-foundation/keyagent/lib/process"
)

// runChild serves the keyring for the lifetime of one command. The
// command inherits this process's environment and stdio, plus
// SSH_AUTH_SOCK and SSH_AGENT_PID. Its exit status becomes ours.
//
// Without --socket the agent listens in a fresh private directory, so
// several `run` invocations and a long-lived `serve` never collide.
func runChild(ctx context.Context, args []string, stderr io.Writer) error {
	var flags serveFlags
	var shell bool
	flagSet := newFlagSet("run", "run [flags] -- command [args...]", stderr)
	flags.register(flagSet)
	flagSet.BoolVar(&shell, "shell", false, "run the command through "+lifecycle.DefaultShell+" -c (arguments are joined with spaces)")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	command := flagSet.Args()
	if len(command) == 0 {
		flagSet.Usage()
		return fmt.Errorf("a command is required")
	}

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.Log)

	// agent.socket_path belongs to `serve`; only --socket applies here.
	cfg.Agent.SocketPath = flags.socketPath
	if cfg.Agent.SocketPath == "" {
		directory, err := os.MkdirTemp("", "keyagent-run-*")
		if err != nil {
			return fmt.Errorf("creating socket directory: %w", err)
		}
		defer os.RemoveAll(directory)
		cfg.Agent.SocketPath = filepath.Join(directory, "agent.sock")
	}

	keys, err := openKeyring(cfg, logger)
	if err != nil {
		return err
	}
	defer keys.Close()

	return serveKeyring(ctx, cfg, keys, logger, func(ctx context.Context, endpoint *agent.Endpoint) error {
		environ := lifecycle.EnvironMap(os.Environ())
		for name, value := range endpoint.Environ() {
			environ[name] = value
		}

		logger.Debug("starting command", "command", command[0], "socket", endpoint.Address())
		var code int
		var err error
		if shell {
			code, err = lifecycle.RunShell(ctx, strings.Join(command, " "), environ)
		} else {
			code, err = lifecycle.RunProcess(ctx, command, environ)
		}
		if err != nil {
			return err
		}
		return exitStatus(code)
	})
}

// exitStatus maps a child's exit code to run's result. A child killed
// by a signal (code -1) counts as a plain failure.
func exitStatus(code int) error {
	switch {
	case code == 0:
		return nil
	case code < 0:
		return process.ExitStatus(1)
	default:
		return process.ExitStatus(code)
	}
}
