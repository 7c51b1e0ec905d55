// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material in memory the Go runtime never
// sees.
//
// [Buffer] is an anonymous mmap region, locked into RAM (mlock) and
// excluded from core dumps (MADV_DONTDUMP). Close zeroes, unlocks and
// unmaps it, after which any access panics. The agent keeps two kinds
// of data in buffers: the age identity that unseals the keyring, and
// the decrypted keyring document with its ed25519 seeds.
//
// Constructors:
//
//   - [New] -- a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory and zeroes the source
//   - [NewFromReader] -- reads up to a size limit from an io.Reader
//   - [ReadFromPath] -- a whitespace-trimmed file, or stdin for "-"
//
// [Zero] clears heap slices that briefly held secret bytes.
package secret
