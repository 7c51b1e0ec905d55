// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/keyagent/lib/netutil"
	"github.com/bureau-foundation/keyagent/lib/wire"
)

// Conn is the transport a connection handler drives: a duplex byte
// stream with a deadline and a close. net.Conn satisfies it; tests use
// in-memory fakes.
type Conn interface {
	io.Reader
	io.Writer

	// SetDeadline bounds the next reads and writes. A zero time clears
	// the deadline.
	SetDeadline(t time.Time) error

	Close() error
}

// DefaultIdleTimeout is how long a connection may sit between requests
// (and how long a response write may take) before it is closed.
const DefaultIdleTimeout = 5 * time.Minute

// ConnectionOptions configures [HandleConnection].
type ConnectionOptions struct {
	// IdleTimeout bounds each wait for the next request and each
	// response write. Zero disables the deadline.
	IdleTimeout time.Duration

	// Logger receives connection lifecycle events. Nil discards them.
	Logger *slog.Logger

	// Metrics, when non-nil, records requests and connection counts.
	Metrics *Metrics
}

// HandleConnection serves requests on conn until the peer disconnects or
// the transport fails, then closes conn. Each request is read, handled
// and answered before the next is read, so responses are strictly in
// request order.
//
// HandleConnection never returns an error and never panics: a clean
// disconnect, a reset, a timeout, a malformed frame and a panicking
// signer all end this connection and nothing else. No resynchronization
// is attempted after a framing error.
//
// A nil handler answers every request with a failure response.
func HandleConnection(ctx context.Context, conn Conn, handler *Handler, options ConnectionOptions) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("connection", uuid.NewString())

	defer conn.Close()

	options.Metrics.connectionOpened()
	defer options.Metrics.connectionClosed()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("connection handler panicked",
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
	}()

	logPeer(logger, conn)

	requests := 0
	for {
		if err := armDeadline(conn, options.IdleTimeout); err != nil {
			logger.Debug("setting connection deadline failed", "error", err)
			return
		}

		result := wire.ReadFrame(conn)
		switch result.Status {
		case wire.Closed:
			logger.Debug("client disconnected", "requests", requests)
			return
		case wire.Failed:
			logTransportError(logger, "reading request failed", result.Err, requests)
			return
		}

		requests++
		response := handle(ctx, handler, result.Payload)
		options.Metrics.observeRequest(result.Payload, response)

		if err := armDeadline(conn, options.IdleTimeout); err != nil {
			logger.Debug("setting connection deadline failed", "error", err)
			return
		}
		if err := wire.WriteFrame(conn, response); err != nil {
			logTransportError(logger, "writing response failed", err, requests)
			return
		}
	}
}

func handle(ctx context.Context, handler *Handler, message []byte) []byte {
	if handler == nil {
		return failureResponse()
	}
	return handler.Handle(ctx, message)
}

func armDeadline(conn Conn, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}

// logTransportError logs a connection-ending error at a level that
// matches how surprising it is.
func logTransportError(logger *slog.Logger, message string, err error, requests int) {
	switch {
	case netutil.IsExpectedCloseError(err):
		logger.Debug(message, "error", err, "requests", requests)
	case netutil.IsTimeout(err):
		logger.Debug(message+": idle timeout", "error", err, "requests", requests)
	default:
		logger.Warn(message, "error", err, "requests", requests)
	}
}
