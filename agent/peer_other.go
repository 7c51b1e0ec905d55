// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package agent

import "log/slog"

func logPeer(logger *slog.Logger, conn Conn) {
	logger.Debug("client connected")
}
