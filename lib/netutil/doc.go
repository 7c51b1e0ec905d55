// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil classifies transport errors seen by socket servers.
//
// [IsExpectedCloseError] recognises the errors a connection produces
// when the peer simply goes away (EOF, closed, reset, broken pipe) so
// callers can log them at debug level instead of as failures.
// [IsTimeout] recognises deadline expiry on reads, writes and accepts.
package netutil
