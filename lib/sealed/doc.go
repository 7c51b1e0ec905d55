// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps filippo.io/age for the keyring: generate x25519
// identities, encrypt to one or more recipients, and decrypt with an
// identity held in a [secret.Buffer].
//
// Ciphertext is base64 text so a sealed keyring is a plain text file
// that survives copy-paste and config management. Identities are
// accepted in age identity file format (comment lines allowed), so the
// output of age-keygen works unchanged.
//
// Key exports:
//
//   - [GenerateKeypair] -- new x25519 identity in a secret.Buffer
//   - [Keypair.WriteIdentityFile] -- age-keygen compatible identity file
//   - [Encrypt] -- seal plaintext to age1... recipients
//   - [Decrypt] -- open with an identity, plaintext in a secret.Buffer
//   - [Recipients] -- public keys of the identities in a buffer
//   - [ParsePublicKey] -- recipient validation
package sealed
