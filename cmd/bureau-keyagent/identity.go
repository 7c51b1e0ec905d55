// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/keyagent/lib/sealed"
)

// runIdentity generates an age identity, writes it to --output (mode
// 0600, never overwriting) and prints its public key on stdout. The
// public key is what keygen seals the keyring to.
func runIdentity(args []string, stdout, stderr io.Writer) error {
	var output string
	flagSet := newFlagSet("identity", "identity --output path", stderr)
	flagSet.StringVarP(&output, "output", "o", "", "file to write the identity to (required)")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if output == "" {
		flagSet.Usage()
		return fmt.Errorf("--output is required")
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	if err := os.MkdirAll(filepath.Dir(output), 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(output), err)
	}
	file, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("creating identity file: %w", err)
	}
	if err := keypair.WriteIdentityFile(file, time.Now()); err != nil {
		file.Close()
		os.Remove(output)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(output)
		return fmt.Errorf("closing identity file: %w", err)
	}

	fmt.Fprintln(stdout, keypair.PublicKey)
	return nil
}
