// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/keyagent/lib/codec"
)

// DocumentVersion is the keyring document format this package writes
// and the only one it reads.
const DocumentVersion = 1

// KeyTypeEd25519 is the only key type the keyring holds.
const KeyTypeEd25519 = "ssh-ed25519"

// ErrUnsupportedVersion is returned for a document written by a newer
// (or corrupt) keyring.
var ErrUnsupportedVersion = errors.New("unsupported keyring document version")

type document struct {
	Version int     `cbor:"version"`
	Keys    []entry `cbor:"keys"`
}

type entry struct {
	Type      string    `cbor:"type"`
	Comment   string    `cbor:"comment,omitempty"`
	Seed      []byte    `cbor:"seed"`
	CreatedAt time.Time `cbor:"created_at"`
}

// decodeDocument parses and validates a keyring document. On error no
// seed bytes are left in the partially decoded document.
func decodeDocument(plaintext []byte) (*document, error) {
	var decoded document
	if err := codec.Unmarshal(plaintext, &decoded); err != nil {
		decoded.zero()
		return nil, fmt.Errorf("decoding keyring document: %w", err)
	}
	if decoded.Version != DocumentVersion {
		decoded.zero()
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, decoded.Version)
	}
	for index, key := range decoded.Keys {
		if key.Type != KeyTypeEd25519 {
			decoded.zero()
			return nil, fmt.Errorf("key %d: unsupported type %q", index, key.Type)
		}
		if len(key.Seed) != ed25519.SeedSize {
			decoded.zero()
			return nil, fmt.Errorf("key %d: seed is %d bytes, want %d", index, len(key.Seed), ed25519.SeedSize)
		}
	}
	return &decoded, nil
}

func (d *document) zero() {
	for _, key := range d.Keys {
		clear(key.Seed)
	}
}
