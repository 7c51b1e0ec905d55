// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitStatus is an error that asks [Exit] for a specific status. It
// carries no message of its own.
type ExitStatus int

func (s ExitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}

// ExitCode returns the requested status.
func (s ExitStatus) ExitCode() int {
	return int(s)
}

// Code maps a command's result to a process exit status: 0 for nil, the
// requested status for an [ExitStatus] anywhere in the chain, 1
// otherwise.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var status ExitStatus
	if errors.As(err, &status) {
		return status.ExitCode()
	}
	return 1
}

// Exit reports err on stderr (unless it is an [ExitStatus]) and exits
// with [Code](err).
func Exit(err error) {
	os.Exit(report(os.Stderr, err))
}

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors that occur before the logger is configured.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func report(w io.Writer, err error) int {
	var status ExitStatus
	if err != nil && !errors.As(err, &status) {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	return Code(err)
}
