// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// fakeConn is an in-memory Conn: reads come from a fixed byte stream
// (or a scripted sequence of read results), writes accumulate in tx.
type fakeConn struct {
	mu        sync.Mutex
	rx        io.Reader
	tx        bytes.Buffer
	deadlines int
	writeErr  error

	// reads, when non-nil, scripts the result of each Read call in
	// order; rx is ignored.
	reads []error

	closed atomic.Bool
}

func newFakeConn(data []byte) *fakeConn {
	return &fakeConn{rx: bytes.NewReader(data)}
}

func (c *fakeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reads != nil {
		if len(c.reads) == 0 {
			return 0, io.EOF
		}
		err := c.reads[0]
		c.reads = c.reads[1:]
		return 0, err
	}
	return c.rx.Read(p)
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.tx.Write(p)
}

func (c *fakeConn) SetDeadline(time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadlines++
	return nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.tx.Bytes())
}

// fakeNetConn adapts fakeConn to net.Conn so a fake listener can hand it
// to the accept loop.
type fakeNetConn struct {
	*fakeConn
}

func (fakeNetConn) LocalAddr() net.Addr { return pipeAddr{} }

func (fakeNetConn) RemoteAddr() net.Addr { return pipeAddr{} }

func (fakeNetConn) SetReadDeadline(time.Time) error { return nil }

func (fakeNetConn) SetWriteDeadline(time.Time) error { return nil }

// recordingSigner records its calls and returns a fixed signature or
// error.
type recordingSigner struct {
	mu        sync.Mutex
	calls     []signCall
	signature []byte
	err       error
}

type signCall struct {
	blob  []byte
	data  []byte
	flags uint32
}

func (s *recordingSigner) Sign(_ context.Context, blob, data []byte, flags uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, signCall{blob: bytes.Clone(blob), data: bytes.Clone(data), flags: flags})
	if s.err != nil {
		return nil, s.err
	}
	return s.signature, nil
}

func (s *recordingSigner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// testKey generates an ed25519 SSH key, returning its KeyEntry and an
// ssh.Signer for it.
func testKey(t *testing.T, comment string) (KeyEntry, ssh.Signer) {
	t.Helper()
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(private)
	if err != nil {
		t.Fatalf("creating ssh signer: %v", err)
	}
	return KeyEntry{Blob: signer.PublicKey().Marshal(), Comment: comment}, signer
}

// sshSigners is a Signer backed by in-memory ssh.Signers keyed by blob.
type sshSigners map[string]ssh.Signer

func (s sshSigners) Sign(_ context.Context, blob, data []byte, _ uint32) ([]byte, error) {
	signer, ok := s[string(blob)]
	if !ok {
		return nil, &SigningError{Fingerprint: Fingerprint(blob), Reason: "unknown key"}
	}
	signature, err := signer.Sign(rand.Reader, data)
	if err != nil {
		return nil, &SigningError{Fingerprint: Fingerprint(blob), Reason: "signing failed", Err: err}
	}
	return ssh.Marshal(signature), nil
}

var errFakeTransport = errors.New("fake transport failure")
