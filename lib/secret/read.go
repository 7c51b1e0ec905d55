// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// MaxFileSize bounds what ReadFromPath will load. Identity files are a
// single line; anything larger is not a secret this agent reads.
const MaxFileSize = 64 * 1024

// ReadFromPath reads a secret from path, or from stdin when path is "-",
// trims surrounding whitespace and returns it in a Buffer the caller
// must close. An empty (or whitespace-only) source is an error.
func ReadFromPath(path string) (*Buffer, error) {
	var source io.Reader
	if path == "-" {
		source = os.Stdin
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		source = file
	}
	return readTrimmed(source, path)
}

func readTrimmed(source io.Reader, name string) (*Buffer, error) {
	data, err := io.ReadAll(io.LimitReader(source, MaxFileSize+1))
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("reading secret from %s: %w", name, err)
	}
	defer Zero(data)

	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("secret in %s exceeds %d bytes", name, MaxFileSize)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret in %s is empty", name)
	}
	return NewFromBytes(trimmed)
}
