// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"log/slog"
	"net"

	"golang.org/x/sys/unix"
)

// logPeer logs the process, user and group of the peer on a Unix socket
// connection (SO_PEERCRED). Other transports log the connection alone.
func logPeer(logger *slog.Logger, conn Conn) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		logger.Debug("client connected")
		return
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		logger.Debug("client connected", "peer_credentials", "unavailable")
		return
	}

	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil || credentialsErr != nil {
		logger.Debug("client connected", "peer_credentials", "unavailable")
		return
	}

	logger.Debug("client connected",
		"peer_pid", credentials.Pid,
		"peer_uid", credentials.Uid,
		"peer_gid", credentials.Gid,
	)
}
