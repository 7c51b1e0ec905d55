// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
)

// runList prints the keyring's public keys, as authorized_keys lines or
// with --fingerprints as "SHA256:... comment" lines like ssh-add -l.
func runList(args []string, stdout, stderr io.Writer) error {
	var flags commonFlags
	var fingerprints bool
	flagSet := newFlagSet("list", "list [--fingerprints]", stderr)
	flags.register(flagSet)
	flagSet.BoolVarP(&fingerprints, "fingerprints", "l", false, "print fingerprints instead of full public keys")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	keys, err := openKeyring(cfg, newLogger(stderr, cfg.Log))
	if err != nil {
		return err
	}
	defer keys.Close()

	if !fingerprints {
		fmt.Fprint(stdout, keys.AuthorizedKeys())
		return nil
	}
	for _, entry := range keys.Keys() {
		fmt.Fprintf(stdout, "%s %s\n", entry.Fingerprint(), entry.Comment)
	}
	return nil
}
