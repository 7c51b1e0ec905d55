// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for keyagent packages.
//
// [SocketDir] and [SocketPath] place test sockets directly under /tmp.
// Unix socket paths are limited to 108 bytes (sun_path) and
// t.TempDir() can exceed that when TMPDIR is deeply nested.
//
// [Eventually] polls for effects of goroutines a test does not own,
// such as a connection goroutine closing its transport.
//
// Helpers fail the test with t.Fatalf instead of returning errors.
package testutil
