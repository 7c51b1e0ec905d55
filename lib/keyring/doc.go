// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring is a software key store for the agent: ed25519 SSH
// keys kept in an age-sealed file and, once opened, in locked memory.
//
// A keyring file is base64 text (see lib/sealed) wrapping an age
// envelope around a deterministic CBOR document:
//
//	{version: 1, keys: [{type, comment, seed, created_at}, ...]}
//
// where seed is the 32-byte ed25519 seed. [Open] decrypts the file with
// an age identity, moves every seed into a [secret.Buffer] and derives
// the public key blobs. A [Keyring] implements both agent.KeySource and
// agent.Signer, so it plugs straight into agent.NewHandler.
//
// Keys are listed in file order. A key whose blob repeats an earlier
// one is skipped, keeping the first occurrence and its comment.
//
// [Keyring.Generate] and [Keyring.Append] add keys in memory;
// [Keyring.WriteFile] seals the result to a set of recipients and
// replaces the file atomically with mode 0600.
package keyring
