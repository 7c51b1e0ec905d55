// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/keyagent/lib/codec"
	"github.com/bureau-foundation/keyagent/lib/sealed"
	"github.com/bureau-foundation/keyagent/lib/secret"
)

// FileMode is the permission of a written keyring file.
const FileMode = 0o600

// Seal encodes the keyring and encrypts it to recipients (age1...
// strings). The plaintext document only exists transiently and is
// zeroed before Seal returns.
func (k *Keyring) Seal(recipients []string) (string, error) {
	k.mu.RLock()
	stored := document{Version: DocumentVersion, Keys: make([]entry, 0, len(k.keys))}
	if k.closed {
		k.mu.RUnlock()
		return "", ErrClosed
	}
	for _, held := range k.keys {
		stored.Keys = append(stored.Keys, entry{
			Type:      KeyTypeEd25519,
			Comment:   held.entry.Comment,
			Seed:      append([]byte(nil), held.seed.Bytes()...),
			CreatedAt: held.createdAt,
		})
	}
	k.mu.RUnlock()
	defer stored.zero()

	plaintext, err := codec.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encoding keyring document: %w", err)
	}
	defer secret.Zero(plaintext)

	ciphertext, err := sealed.Encrypt(plaintext, recipients)
	if err != nil {
		return "", fmt.Errorf("sealing keyring: %w", err)
	}
	return ciphertext, nil
}

// WriteFile seals the keyring to recipients and replaces path
// atomically: the text is written to a temporary file in the same
// directory, synced, given [FileMode], then renamed over path. Missing
// parent directories are created with mode 0700.
func (k *Keyring) WriteFile(path string, recipients []string) error {
	ciphertext, err := k.Seal(recipients)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, []byte(ciphertext+"\n"), FileMode)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".keyring-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer func() {
		temporary.Close()
		os.Remove(temporaryPath)
	}()

	if err := temporary.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := temporary.Sync(); err != nil {
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
