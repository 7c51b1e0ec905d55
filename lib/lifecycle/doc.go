// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package lifecycle provides the start-up and tear-down primitives the
// agent server is built from, exported for other callers that need the
// same guarantees:
//
//   - [Spawn] and [WithTask] run a background goroutine that is always
//     joined before the enclosing scope ends, including when the scope
//     exits through an error or a panic.
//   - [RunProcess] and [RunShell] execute an external command with an
//     explicit environment. The child never inherits the caller's
//     environment implicitly. "The process ran and exited with N" is a
//     result; "the process could not be started" is a [*StartError].
//   - [RemoveFile] deletes a path and treats "already gone" as success
//     while passing every other failure through untouched.
package lifecycle
