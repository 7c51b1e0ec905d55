// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/bureau-foundation/keyagent/agent"
	"github.com/bureau-foundation/keyagent/lib/sealed"
	"github.com/bureau-foundation/keyagent/lib/secret"
)

// ErrClosed is the cause of signing errors after Close.
var ErrClosed = errors.New("keyring is closed")

var (
	_ agent.KeySource = (*Keyring)(nil)
	_ agent.Signer    = (*Keyring)(nil)
)

// Keyring holds ed25519 keys with their seeds in locked memory. It is
// safe for concurrent use. Close releases the seeds.
type Keyring struct {
	logger *slog.Logger

	mu      sync.RWMutex
	keys    []key
	digests map[blobDigest]int
	closed  bool
}

type key struct {
	entry     agent.KeyEntry
	public    ssh.PublicKey
	seed      *secret.Buffer
	createdAt time.Time
}

// Option configures a Keyring.
type Option func(*Keyring)

// WithLogger makes the keyring log skipped duplicates.
func WithLogger(logger *slog.Logger) Option {
	return func(k *Keyring) {
		k.logger = logger
	}
}

// New returns an empty keyring.
func New(options ...Option) *Keyring {
	keyring := &Keyring{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		digests: make(map[blobDigest]int),
	}
	for _, option := range options {
		option(keyring)
	}
	return keyring
}

// Open reads the sealed keyring at path and decrypts it with identity
// (age identity file contents, borrowed and not closed). A missing file
// fails with an error satisfying errors.Is(err, fs.ErrNotExist).
func Open(path string, identity *secret.Buffer, options ...Option) (*Keyring, error) {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyring: %w", err)
	}
	return Unseal(string(ciphertext), identity, options...)
}

// Unseal decrypts keyring text produced by [Keyring.Seal].
func Unseal(ciphertext string, identity *secret.Buffer, options ...Option) (*Keyring, error) {
	plaintext, err := sealed.Decrypt(ciphertext, identity)
	if err != nil {
		return nil, fmt.Errorf("unsealing keyring: %w", err)
	}
	defer plaintext.Close()

	decoded, err := decodeDocument(plaintext.Bytes())
	if err != nil {
		return nil, err
	}

	keyring := New(options...)
	for _, stored := range decoded.Keys {
		// Append zeroes stored.Seed.
		if _, _, err := keyring.Append(stored.Seed, stored.Comment, stored.CreatedAt); err != nil {
			decoded.zero()
			keyring.Close()
			return nil, err
		}
	}
	return keyring, nil
}

// Append adds the key with the given ed25519 seed. The seed is moved
// into locked memory and zeroed in place. If the key is already present
// it is not added again and added is false; the returned entry is then
// the existing one.
func (k *Keyring) Append(seed []byte, comment string, createdAt time.Time) (entry agent.KeyEntry, added bool, err error) {
	if len(seed) != ed25519.SeedSize {
		secret.Zero(seed)
		return agent.KeyEntry{}, false, fmt.Errorf("ed25519 seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}

	private := ed25519.NewKeyFromSeed(seed)
	public, err := ssh.NewPublicKey(private.Public())
	secret.Zero(private)
	if err != nil {
		secret.Zero(seed)
		return agent.KeyEntry{}, false, fmt.Errorf("deriving public key: %w", err)
	}
	blob := public.Marshal()
	digest := digestBlob(blob)

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		secret.Zero(seed)
		return agent.KeyEntry{}, false, ErrClosed
	}
	if index, duplicate := k.digests[digest]; duplicate {
		secret.Zero(seed)
		existing := k.keys[index].entry
		k.logger.Warn("skipping duplicate key",
			"fingerprint", existing.Fingerprint(),
			"comment", comment,
			"kept_comment", existing.Comment,
		)
		return existing, false, nil
	}

	buffer, err := secret.NewFromBytes(seed)
	if err != nil {
		return agent.KeyEntry{}, false, fmt.Errorf("protecting seed: %w", err)
	}

	entry = agent.KeyEntry{Blob: blob, Comment: comment}
	k.digests[digest] = len(k.keys)
	k.keys = append(k.keys, key{
		entry:     entry,
		public:    public,
		seed:      buffer,
		createdAt: createdAt.UTC().Truncate(time.Second),
	})
	return entry, true, nil
}

// Generate creates a new ed25519 key with the given comment and adds it.
func (k *Keyring) Generate(comment string) (agent.KeyEntry, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(rand.Reader, seed); err != nil {
		return agent.KeyEntry{}, fmt.Errorf("generating seed: %w", err)
	}
	entry, _, err := k.Append(seed, comment, time.Now())
	return entry, err
}

// Keys returns the keys in order. The entries share blob storage with
// the keyring; agent.NewHandler copies them.
func (k *Keyring) Keys() []agent.KeyEntry {
	k.mu.RLock()
	defer k.mu.RUnlock()

	entries := make([]agent.KeyEntry, len(k.keys))
	for index, stored := range k.keys {
		entries[index] = stored.entry
	}
	return entries
}

// Len returns the number of keys.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Sign signs data with the key whose blob is blob and returns the
// SSH-encoded signature. ed25519 has a single signature algorithm, so
// flags are accepted and ignored. Failures are *agent.SigningError.
func (k *Keyring) Sign(ctx context.Context, blob, data []byte, flags uint32) ([]byte, error) {
	fingerprint := agent.Fingerprint(blob)
	if err := ctx.Err(); err != nil {
		return nil, &agent.SigningError{Fingerprint: fingerprint, Reason: "request cancelled", Err: err}
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, &agent.SigningError{Fingerprint: fingerprint, Reason: "keyring closed", Err: ErrClosed}
	}
	index, found := k.digests[digestBlob(blob)]
	if !found {
		return nil, &agent.SigningError{Fingerprint: fingerprint, Reason: "key not in keyring"}
	}

	private := ed25519.NewKeyFromSeed(k.keys[index].seed.Bytes())
	defer secret.Zero(private)

	signer, err := ssh.NewSignerFromKey(private)
	if err != nil {
		return nil, &agent.SigningError{Fingerprint: fingerprint, Reason: "loading key", Err: err}
	}
	signature, err := signer.Sign(rand.Reader, data)
	if err != nil {
		return nil, &agent.SigningError{Fingerprint: fingerprint, Reason: "signing", Err: err}
	}
	return ssh.Marshal(signature), nil
}

// AuthorizedKeys renders one authorized_keys line per key, in order,
// with the comment appended when there is one.
func (k *Keyring) AuthorizedKeys() string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	var builder strings.Builder
	for _, stored := range k.keys {
		line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(stored.public)), "\n")
		builder.WriteString(line)
		if stored.entry.Comment != "" {
			builder.WriteString(" ")
			builder.WriteString(stored.entry.Comment)
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// Close zeroes and releases every seed. Signing fails afterwards; Keys
// still lists the public keys. Close is idempotent.
func (k *Keyring) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true

	var errs []error
	for _, stored := range k.keys {
		if err := stored.seed.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
