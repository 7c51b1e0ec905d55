// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/bureau-foundation/keyagent/lib/config"
)

// newLogger builds the process logger. With format auto, a terminal
// gets slog's text handler and anything else (journald, CI, pipes) gets
// JSON.
func newLogger(w io.Writer, logConfig config.LogConfig) *slog.Logger {
	options := &slog.HandlerOptions{Level: logConfig.SlogLevel()}

	format := logConfig.Format
	if format == config.FormatAuto || format == "" {
		format = config.FormatJSON
		if isTerminal(w) {
			format = config.FormatText
		}
	}

	var handler slog.Handler
	if format == config.FormatText {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler).With("binary", binaryName)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
