// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// KeyEntry is one identity offered to clients: an opaque public key blob
// in SSH wire encoding and a human-readable comment. Treat it as
// immutable once constructed.
type KeyEntry struct {
	Blob    []byte
	Comment string
}

// Fingerprint returns the SHA256 fingerprint of the key blob.
func (k KeyEntry) Fingerprint() string {
	return Fingerprint(k.Blob)
}

// Fingerprint computes the SHA256 fingerprint of a public key blob in
// the "SHA256:<unpadded base64>" form printed by ssh-keygen -l.
func Fingerprint(blob []byte) string {
	hash := sha256.Sum256(blob)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(hash[:])
}

// KeySource provides the identities the agent offers. Keys must return
// the same ordered, de-duplicated sequence on every call.
type KeySource interface {
	Keys() []KeyEntry
}

// Signer produces signatures for keys the agent offers. It is the
// boundary to whatever holds the private keys: a software keyring, a
// hardware token, a remote service.
//
// Sign returns the signature in SSH encoding (string format, string
// blob), ready to be placed in a sign response. flags carries the
// request flags unchanged. A refusal or device error should be reported
// as a [*SigningError]; the agent answers any error with a failure
// response and never forwards its text to the client.
//
// Implementations must be safe for concurrent use: each connection calls
// Sign from its own goroutine.
type Signer interface {
	Sign(ctx context.Context, blob, data []byte, flags uint32) ([]byte, error)
}

// SignerFunc adapts a function to the [Signer] interface.
type SignerFunc func(ctx context.Context, blob, data []byte, flags uint32) ([]byte, error)

// Sign calls f.
func (f SignerFunc) Sign(ctx context.Context, blob, data []byte, flags uint32) ([]byte, error) {
	return f(ctx, blob, data, flags)
}

// SigningError reports that a signer declined to sign or failed while
// signing.
type SigningError struct {
	// Fingerprint identifies the key the signature was requested for.
	Fingerprint string

	// Reason is a short description for logs.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (e *SigningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing with %s: %s: %v", e.Fingerprint, e.Reason, e.Err)
	}
	return fmt.Sprintf("signing with %s: %s", e.Fingerprint, e.Reason)
}

func (e *SigningError) Unwrap() error { return e.Err }
