// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		output string
	}{
		{"success", nil, 0, ""},
		{"plain error", errors.New("keyring not found"), 1, "error: keyring not found\n"},
		{"exit status", ExitStatus(42), 42, ""},
		{"wrapped exit status", fmt.Errorf("running child: %w", ExitStatus(3)), 3, ""},
		{"zero exit status", ExitStatus(0), 0, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if code := report(&stderr, test.err); code != test.code {
				t.Errorf("report = %d, want %d", code, test.code)
			}
			if stderr.String() != test.output {
				t.Errorf("stderr = %q, want %q", stderr.String(), test.output)
			}
		})
	}
}

func TestExitStatusError(t *testing.T) {
	if got := ExitStatus(7).Error(); got != "exit status 7" {
		t.Errorf("Error() = %q", got)
	}
}
