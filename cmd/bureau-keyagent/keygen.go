// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"golang.org/x/crypto/ssh"

	"github.com/bureau-foundation/keyagent/lib/keyring"
	"github.com/bureau-foundation/keyagent/lib/sealed"
	"github.com/bureau-foundation/keyagent/lib/secret"
)

// runKeygen adds a new ed25519 key to the keyring, creating the keyring
// if it does not exist, and prints the new key as an authorized_keys
// line.
//
// The keyring is resealed to every --recipient, or to the identity's own
// public keys when none is given. Recipients are not remembered between
// runs, so an escrow recipient must be passed every time.
func runKeygen(args []string, stdout, stderr io.Writer) error {
	var flags commonFlags
	var comment string
	var recipients []string
	flagSet := newFlagSet("keygen", "keygen [--comment text] [--recipient age1...]", stderr)
	flags.register(flagSet)
	flagSet.StringVarP(&comment, "comment", "C", "", "comment stored with the key and shown by ssh-add -l")
	flagSet.StringArrayVar(&recipients, "recipient", nil, "age public key to seal the keyring to (repeatable)")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.Log)

	for _, recipient := range recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return err
		}
	}

	identity, err := secret.ReadFromPath(cfg.Keyring.IdentityFile)
	if err != nil {
		return fmt.Errorf("reading age identity: %w", err)
	}
	defer identity.Close()

	if len(recipients) == 0 {
		recipients, err = sealed.Recipients(identity)
		if err != nil {
			return fmt.Errorf("deriving recipients from identity: %w", err)
		}
	}

	keys, err := keyring.Open(cfg.Keyring.Path, identity, keyring.WithLogger(logger))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("creating keyring", "path", cfg.Keyring.Path)
		keys = keyring.New(keyring.WithLogger(logger))
	case err != nil:
		return fmt.Errorf("opening keyring %s: %w", cfg.Keyring.Path, err)
	}
	defer keys.Close()

	entry, err := keys.Generate(comment)
	if err != nil {
		return err
	}
	if err := keys.WriteFile(cfg.Keyring.Path, recipients); err != nil {
		return err
	}
	logger.Info("added key",
		"fingerprint", entry.Fingerprint(),
		"keys", keys.Len(),
		"recipients", len(recipients),
	)

	publicKey, err := ssh.ParsePublicKey(entry.Blob)
	if err != nil {
		return fmt.Errorf("parsing generated key: %w", err)
	}
	line := string(ssh.MarshalAuthorizedKey(publicKey))
	if comment != "" {
		line = line[:len(line)-1] + " " + comment + "\n"
	}
	fmt.Fprint(stdout, line)
	return nil
}
