// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bureau-keyagent is an SSH agent backed by an age-sealed keyring. It
// answers identity listing and signing requests from ssh, git and any
// other agent client on a Unix socket.
//
// Subcommands: serve (run the agent until interrupted), run (serve for
// the lifetime of one child process, which gets SSH_AUTH_SOCK), identity
// (create an age identity), keygen (add an ed25519 key to the keyring),
// list (print authorized_keys lines), version.
package main
