// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements a local key agent: a daemon that answers the
// SSH agent protocol on a Unix socket so that client processes can list
// public keys and obtain signatures without ever holding private key
// material. Signing is delegated to a [Signer] (a software keyring, a
// hardware token, anything that can produce an SSH signature).
//
// The package is layered leaves first:
//
//   - [Handler] decodes one request payload and produces one response
//     payload. It is immutable after construction and carries no locks,
//     so any number of connections may call it concurrently. Every
//     protocol-level fault (unknown opcode, unknown key, signer refusal,
//     undecodable body) becomes a [Failure] response; nothing is raised.
//   - [HandleConnection] drives one connection: read a frame, handle it,
//     write the framed response, repeat until the peer disconnects or the
//     transport fails. It never returns an error; a broken connection
//     affects nobody else.
//   - [AcceptLoop] accepts connections with a short deadline so it can
//     poll its context for cancellation, and starts one goroutine per
//     connection without waiting for it.
//   - [Serve] is the scoped lifecycle: bind the socket (or an in-memory
//     [PipeListener] when no path is given), run the accept loop in the
//     background, hand an [Endpoint] to the caller, and on return cancel
//     and join the accept loop before the socket file is removed.
//     Connection goroutines are not joined; they end on their own idle
//     timeout or when the peer disconnects.
//
// Framing lives in lib/wire; goroutine scoping, process execution and
// socket-file removal live in lib/lifecycle.
package agent
