// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/keyagent/lib/process"
	"github.com/bureau-foundation/keyagent/lib/version"
)

const binaryName = "bureau-keyagent"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	process.Exit(err)
}

// run dispatches a subcommand. stdout carries command output (public
// keys, authorized_keys lines); stderr carries usage and logs.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("subcommand required")
	}

	subcommand, rest := args[0], args[1:]
	switch subcommand {
	case "serve":
		return runServe(ctx, rest, stderr)
	case "run":
		return runChild(ctx, rest, stderr)
	case "identity":
		return runIdentity(rest, stdout, stderr)
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "list":
		return runList(rest, stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", binaryName, version.Info())
		return nil
	case "-h", "--help", "help":
		printUsage(stderr)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown subcommand: %q", subcommand)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: %s <subcommand> [flags]

Subcommands:
  serve       Serve the keyring on the agent socket until interrupted
  run         Serve for the lifetime of a command: run [--shell] -- command...
  identity    Generate an age identity for sealing the keyring
  keygen      Add a new ed25519 key to the keyring
  list        Print the keyring as authorized_keys lines
  version     Print version information

Configuration comes from --config or $%s; flags override it.
Run '%s <subcommand> --help' for subcommand flags.
`, binaryName, "BUREAU_KEYAGENT_CONFIG", binaryName)
}
