// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/keyagent/lib/lifecycle"
)

// SocketMode is the permission applied to the agent socket after bind.
// Socket permissions are the agent's only access control.
const SocketMode = 0o600

// staleProbeTimeout bounds the dial used to tell a stale socket file
// from a live agent.
const staleProbeTimeout = 200 * time.Millisecond

// ErrSocketInUse is returned by [ListenUnix] when another process is
// already accepting connections on the path.
var ErrSocketInUse = errors.New("agent socket is in use")

// ListenUnix binds and listens on a Unix socket at path with
// [SocketMode] permissions. A socket file left behind by a dead agent is
// replaced. A path held by a live listener fails with [ErrSocketInUse],
// and a path occupied by anything other than a socket is an error: the
// agent never deletes a regular file to make room for itself.
//
// Bind and listen failures are returned as is; there is no retry.
func ListenUnix(path string) (*net.UnixListener, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}

	if err := os.Chmod(path, SocketMode); err != nil {
		listener.Close()
		lifecycle.RemoveFile(path)
		return nil, fmt.Errorf("restricting permissions on %s: %w", path, err)
	}
	return listener, nil
}

func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking socket path %s: %w", path, err)
	}
	if info.Mode().Type() != fs.ModeSocket {
		return fmt.Errorf("socket path %s exists and is not a socket (mode %s)", path, info.Mode())
	}

	probe, err := net.DialTimeout("unix", path, staleProbeTimeout)
	if err == nil {
		probe.Close()
		return fmt.Errorf("%w: %s", ErrSocketInUse, path)
	}

	if err := lifecycle.RemoveFile(path); err != nil {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	return nil
}

// WithUnixSocket listens on path, calls fn with the listener, and closes
// the listener and removes the socket file when fn returns, returns an
// error, or panics. Removal tolerates a file that is already gone
// (closing a *net.UnixListener usually unlinks it first).
func WithUnixSocket(path string, fn func(listener *net.UnixListener) error) (err error) {
	listener, err := ListenUnix(path)
	if err != nil {
		return err
	}
	defer func() {
		listener.Close()
		if removeErr := lifecycle.RemoveFile(path); removeErr != nil && err == nil {
			err = fmt.Errorf("removing socket %s: %w", path, removeErr)
		}
	}()
	return fn(listener)
}

// pipeAddr is the address of a [PipeListener].
type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

// PipeListener is an in-memory [Listener] whose connections are
// net.Pipe pairs created by Dial. It stands in for a socket when the
// agent is embedded in another process and no filesystem path is
// wanted.
type PipeListener struct {
	connections chan net.Conn
	done        chan struct{}
	closeOnce   sync.Once

	mu       sync.Mutex
	deadline time.Time
}

// NewPipeListener creates an open PipeListener.
func NewPipeListener() *PipeListener {
	return &PipeListener{
		connections: make(chan net.Conn),
		done:        make(chan struct{}),
	}
}

// Accept waits for the next Dial, the deadline, or Close. A passed
// deadline yields an error satisfying os.ErrDeadlineExceeded (and
// net.Error.Timeout), matching socket listeners.
func (l *PipeListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	deadline := l.deadline
	l.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, l.timeoutError()
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-l.done:
		return nil, &net.OpError{Op: "accept", Net: "pipe", Addr: pipeAddr{}, Err: net.ErrClosed}
	case conn := <-l.connections:
		return conn, nil
	case <-expired:
		return nil, l.timeoutError()
	}
}

func (l *PipeListener) timeoutError() error {
	return &net.OpError{Op: "accept", Net: "pipe", Addr: pipeAddr{}, Err: os.ErrDeadlineExceeded}
}

// SetDeadline sets the time after which Accept fails with a timeout. A
// zero time means no deadline.
func (l *PipeListener) SetDeadline(t time.Time) error {
	l.mu.Lock()
	l.deadline = t
	l.mu.Unlock()
	return nil
}

// Dial connects to the listener and returns the client end of a new
// pipe. It blocks until Accept takes the server end, ctx is done, or the
// listener is closed.
func (l *PipeListener) Dial(ctx context.Context) (net.Conn, error) {
	server, client := net.Pipe()
	select {
	case l.connections <- server:
		return client, nil
	case <-l.done:
		server.Close()
		client.Close()
		return nil, &net.OpError{Op: "dial", Net: "pipe", Addr: pipeAddr{}, Err: net.ErrClosed}
	case <-ctx.Done():
		server.Close()
		client.Close()
		return nil, ctx.Err()
	}
}

// Close stops Accept and Dial. Connections already handed out are not
// affected. Close is idempotent.
func (l *PipeListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

// Addr returns the listener's placeholder address.
func (l *PipeListener) Addr() net.Addr {
	return pipeAddr{}
}
