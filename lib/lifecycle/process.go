// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// ErrEmptyCommand is wrapped by the [*StartError] returned when the
// command has no program to run.
var ErrEmptyCommand = errors.New("empty command")

// StartError reports that a command could not be started at all: the
// executable was missing, not executable, or the command was empty. It
// is distinct from a command that ran and exited non-zero, which is a
// normal result.
type StartError struct {
	Command string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("starting %q: %v", e.Command, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// DefaultShell interprets the string form of commands run by [RunShell].
const DefaultShell = "/bin/sh"

// ProcessOptions controls the standard streams of a child process. Nil
// fields inherit the corresponding stream of the current process, so an
// interactive command (ssh, git) run through the agent behaves as if
// started directly.
type ProcessOptions struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunProcess runs argv[0] with arguments argv[1:] and waits for it to
// exit. The child's environment is exactly environ; nothing is inherited
// from the current process. The program name is resolved with the
// current process's PATH when it contains no slash.
//
// Returns the child's exit status. A child killed by a signal reports
// -1 with a nil error. If the command cannot be started the status is -1
// and the error is a [*StartError].
func RunProcess(ctx context.Context, argv []string, environ map[string]string, options ...ProcessOptions) (int, error) {
	if len(argv) == 0 || argv[0] == "" {
		return -1, &StartError{Command: strings.Join(argv, " "), Err: ErrEmptyCommand}
	}
	return run(ctx, exec.CommandContext(ctx, argv[0], argv[1:]...), environ, options)
}

// RunShell runs command through [DefaultShell] -c, so the string is
// subject to the shell's expansion rules (variables from environ,
// redirections, exit). Otherwise it behaves like [RunProcess].
func RunShell(ctx context.Context, command string, environ map[string]string, options ...ProcessOptions) (int, error) {
	if strings.TrimSpace(command) == "" {
		return -1, &StartError{Command: command, Err: ErrEmptyCommand}
	}
	return run(ctx, exec.CommandContext(ctx, DefaultShell, "-c", command), environ, options)
}

func run(ctx context.Context, cmd *exec.Cmd, environ map[string]string, options []ProcessOptions) (int, error) {
	// A nil Env would make exec inherit os.Environ(); an empty non-nil
	// slice gives the child an empty environment.
	cmd.Env = environmentList(environ)

	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	for _, option := range options {
		if option.Stdin != nil {
			cmd.Stdin = option.Stdin
		}
		if option.Stdout != nil {
			cmd.Stdout = option.Stdout
		}
		if option.Stderr != nil {
			cmd.Stderr = option.Stderr
		}
	}

	if err := cmd.Start(); err != nil {
		return -1, &StartError{Command: cmd.String(), Err: err}
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, fmt.Errorf("waiting for %q: %w", cmd.String(), err)
}

// environmentList converts environ to KEY=VALUE entries sorted by key,
// so the child's environment does not depend on map iteration order.
func environmentList(environ map[string]string) []string {
	keys := make([]string, 0, len(environ))
	for key := range environ {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, key := range keys {
		list = append(list, key+"="+environ[key])
	}
	return list
}

// EnvironMap parses KEY=VALUE entries (the format of os.Environ) into a
// map suitable for [RunProcess]. Entries without '=' are skipped; later
// entries win.
func EnvironMap(entries []string) map[string]string {
	environ := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			continue
		}
		environ[key] = value
	}
	return environ
}
