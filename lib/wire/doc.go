// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the length-prefixed framing used by the
// agent socket protocol. Every message in either direction is a 4-byte
// big-endian unsigned length followed by exactly that many payload
// bytes.
//
// [ReadFrame] returns a tagged [Result] rather than a bare error so that
// callers can tell a clean peer disconnect ([Closed]) from a transport
// failure ([Failed]) without comparing error values. Both end a
// connection; only the logging differs.
//
// This package has no Bureau-internal dependencies.
package wire
