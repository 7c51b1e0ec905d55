// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the binary entrypoint helpers: the raw stderr
// writes that happen before the structured logger exists or after it is
// no longer useful, and the translation of main's error into an exit
// status.
//
// A command that must exit with a particular status (the `run`
// subcommand propagating its child's status) returns an [ExitStatus]
// error; [Exit] maps it to os.Exit without printing anything.
package process
