// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"filippo.io/age"

	"github.com/bureau-foundation/keyagent/lib/secret"
)

// ErrNoIdentity is returned when an identity buffer holds no x25519
// identity that can produce a recipient.
var ErrNoIdentity = errors.New("no age x25519 identity found")

// Keypair is an age x25519 identity and its recipient. Close releases
// the private key.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... string in locked memory. It
	// must never be logged or passed on a command line.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// WriteIdentityFile writes the keypair in the format age-keygen uses:
// two comment lines (creation time, public key) followed by the secret
// key line.
func (k *Keypair) WriteIdentityFile(w io.Writer, created time.Time) error {
	header := fmt.Sprintf("# created: %s\n# public key: %s\n", created.UTC().Format(time.RFC3339), k.PublicKey)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("writing identity header: %w", err)
	}
	if _, err := w.Write(k.PrivateKey.Bytes()); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

// GenerateKeypair creates a new x25519 identity. The caller must Close
// the returned keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}

	// identity.String() leaves one heap copy behind; the buffer is the
	// copy that lives.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting age identity: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt seals plaintext to every recipient (age1... strings) and
// returns standard base64 of the age ciphertext. At least one recipient
// is required.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt opens base64 ciphertext produced by [Encrypt]. identity holds
// one or more identities in age identity file format; it is borrowed,
// not closed. Surrounding whitespace in ciphertext is ignored.
//
// The plaintext is returned in a buffer the caller must close. An empty
// plaintext yields a one-byte zero buffer, since buffers cannot be
// empty.
func Decrypt(ciphertext string, identity *secret.Buffer) (*secret.Buffer, error) {
	identities, err := parseIdentities(identity)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(ciphertext))))
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return secret.New(1)
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// Recipients returns the age1... recipient of every x25519 identity in
// identity, in file order. Fails with [ErrNoIdentity] when there is
// none.
func Recipients(identity *secret.Buffer) ([]string, error) {
	identities, err := parseIdentities(identity)
	if err != nil {
		return nil, err
	}

	var recipients []string
	for _, parsed := range identities {
		if x25519, ok := parsed.(*age.X25519Identity); ok {
			recipients = append(recipients, x25519.Recipient().String())
		}
	}
	if len(recipients) == 0 {
		return nil, ErrNoIdentity
	}
	return recipients, nil
}

// ParsePublicKey reports whether publicKey is a valid age x25519
// recipient.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

func parseIdentities(identity *secret.Buffer) ([]age.Identity, error) {
	identities, err := age.ParseIdentities(bytes.NewReader(identity.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("parsing age identity: %w", err)
	}
	return identities, nil
}
