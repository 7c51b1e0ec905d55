// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the keyagent binary.
//
// Release builds inject the variables with -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/keyagent/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit was not injected, the VCS stamp the Go toolchain embeds
// (vcs.revision, vcs.modified, vcs.time) is used instead, so a plain
// `go build` from a checkout still reports its commit.
package version
