// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the keyagent YAML configuration.
//
// One file is read, named by the --config flag (via [LoadFile]) or the
// BUREAU_KEYAGENT_CONFIG environment variable (via [Load]). There is no
// search path. Without either, [Load] returns [Default] so the agent can
// run from flags alone. Command-line flags override file values; that
// merge happens in the binary.
//
// A file may carry development, staging and production sections that
// override base values when [Config].Environment matches. Production
// without its own section logs JSON at info level.
//
// Path fields expand ${VAR} and ${VAR:-default}. ${CONFIG_DIR} is the
// directory holding the config file, so a keyring can live next to it.
//
// Key exports:
//
//   - [Config] -- Agent, Keyring, Metrics and Log sections
//   - [Default] -- development defaults
//   - [Load] and [LoadFile] -- the two entry points
//   - [Config.Validate] -- all problems at once, joined
package config
