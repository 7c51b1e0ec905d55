// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/bureau-foundation/keyagent/lib/lifecycle"
	"github.com/bureau-foundation/keyagent/lib/netutil"
)

// Listener is the accept side of a transport. *net.UnixListener and
// [*PipeListener] satisfy it.
type Listener interface {
	Accept() (net.Conn, error)

	// SetDeadline bounds the next Accept. An Accept that reaches the
	// deadline must fail with an error for which netutil.IsTimeout
	// reports true.
	SetDeadline(t time.Time) error

	Close() error
	Addr() net.Addr
}

// DefaultAcceptTimeout is how long a single Accept waits before the
// accept loop re-checks its context. It bounds shutdown latency.
const DefaultAcceptTimeout = 100 * time.Millisecond

// ServerOptions configures [AcceptLoop] and [Serve].
type ServerOptions struct {
	// AcceptTimeout bounds each Accept call. Zero means
	// DefaultAcceptTimeout.
	AcceptTimeout time.Duration

	// IdleTimeout is passed to every connection; see
	// ConnectionOptions.IdleTimeout. Zero disables it.
	IdleTimeout time.Duration

	// Logger receives server and connection events. Nil discards them.
	Logger *slog.Logger

	// Metrics, when non-nil, records connection and request counts.
	Metrics *Metrics
}

func (o ServerOptions) withDefaults() ServerOptions {
	if o.AcceptTimeout <= 0 {
		o.AcceptTimeout = DefaultAcceptTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// AcceptLoop accepts connections on listener and serves each in its own
// goroutine with [HandleConnection], never waiting for one before
// accepting the next. There is no limit on concurrent connections.
//
// Each Accept is bounded by options.AcceptTimeout; on timeout the loop
// checks ctx and returns nil once it is done, so cancellation is
// observed within one accept interval. Cancelling ctx does not interrupt
// connections already being served: they run on a context detached from
// ctx's cancellation and end on their idle timeout or when the peer
// hangs up.
//
// A closed listener ends the loop (with nil when ctx is done, otherwise
// with the error). Other accept errors are logged and retried after one
// accept interval. AcceptLoop does not close the listener.
func AcceptLoop(ctx context.Context, listener Listener, handler *Handler, options ServerOptions) error {
	options = options.withDefaults()
	logger := options.Logger

	connectionContext := context.WithoutCancel(ctx)
	connectionOptions := ConnectionOptions{
		IdleTimeout: options.IdleTimeout,
		Logger:      logger,
		Metrics:     options.Metrics,
	}

	logger.Info("agent accepting connections",
		"network", listener.Addr().Network(),
		"address", listener.Addr().String(),
	)

	for {
		if ctx.Err() != nil {
			logger.Debug("accept loop stopping")
			return nil
		}

		if err := listener.SetDeadline(time.Now().Add(options.AcceptTimeout)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("setting accept deadline: %w", err)
		}

		conn, err := listener.Accept()
		if err != nil {
			switch {
			case netutil.IsTimeout(err):
				continue
			case errors.Is(err, net.ErrClosed):
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accepting connections: %w", err)
			default:
				logger.Error("accept failed", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(options.AcceptTimeout):
				}
				continue
			}
		}

		go HandleConnection(connectionContext, conn, handler, connectionOptions)
	}
}

// Endpoint describes where a running agent can be reached. It is handed
// to the function passed to [Serve].
type Endpoint struct {
	socketPath string
	pipe       *PipeListener
}

// Network returns "unix" for a socket endpoint and "pipe" for an
// in-memory one.
func (e *Endpoint) Network() string {
	if e.pipe != nil {
		return "pipe"
	}
	return "unix"
}

// Address returns the socket path, or "pipe" for an in-memory endpoint.
func (e *Endpoint) Address() string {
	if e.pipe != nil {
		return e.pipe.Addr().String()
	}
	return e.socketPath
}

// Dial opens a client connection to the agent.
func (e *Endpoint) Dial(ctx context.Context) (net.Conn, error) {
	if e.pipe != nil {
		return e.pipe.Dial(ctx)
	}
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", e.socketPath)
}

// Environ returns the variables that point SSH clients at this agent:
// SSH_AUTH_SOCK and SSH_AGENT_PID. In-memory endpoints cannot be reached
// by other processes and return an empty map.
func (e *Endpoint) Environ() map[string]string {
	if e.pipe != nil {
		return map[string]string{}
	}
	return map[string]string{
		"SSH_AUTH_SOCK": e.socketPath,
		"SSH_AGENT_PID": strconv.Itoa(os.Getpid()),
	}
}

// Serve runs an agent for the duration of fn.
//
// With a non-empty socketPath the agent listens on a Unix socket there
// (see [ListenUnix]); with an empty socketPath it listens on an
// in-memory [PipeListener] reachable only through the endpoint's Dial.
// The accept loop runs in the background while fn runs. When fn
// returns, errors or panics, Serve cancels the accept loop, waits for it
// to stop, and only then closes the listener and removes the socket
// file. Connections still being served are not waited for.
//
// The context passed to fn is cancelled if the accept loop stops on its
// own (for example because the listener failed), so a caller blocked on
// ctx.Done() notices. Serve returns fn's error if any, else the accept
// loop's error, else any error removing the socket file.
func Serve(ctx context.Context, handler *Handler, socketPath string, options ServerOptions, fn func(ctx context.Context, endpoint *Endpoint) error) error {
	if socketPath == "" {
		listener := NewPipeListener()
		defer listener.Close()
		return serveOn(ctx, listener, handler, options, &Endpoint{pipe: listener}, fn)
	}

	return WithUnixSocket(socketPath, func(listener *net.UnixListener) error {
		return serveOn(ctx, listener, handler, options, &Endpoint{socketPath: socketPath}, fn)
	})
}

func serveOn(ctx context.Context, listener Listener, handler *Handler, options ServerOptions, endpoint *Endpoint, fn func(context.Context, *Endpoint) error) error {
	acceptContext, stopAccepting := context.WithCancel(ctx)
	defer stopAccepting()

	bodyContext, cancelBody := context.WithCancel(ctx)
	defer cancelBody()

	return lifecycle.WithTask(acceptContext,
		func(ctx context.Context) error {
			defer cancelBody()
			return AcceptLoop(ctx, listener, handler, options)
		},
		func(context.Context) error {
			defer stopAccepting()
			return fn(bodyContext, endpoint)
		},
	)
}
