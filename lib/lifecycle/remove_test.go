// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRemoveFileCallsRemoveOnce(t *testing.T) {
	const path = "foo.bar"
	var calls []string

	remover := FileRemover{
		Remove: func(p string) error {
			calls = append(calls, p)
			return nil
		},
		Exists: func(string) bool {
			t.Error("Exists consulted after a successful remove")
			return true
		},
	}
	if err := remover.RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if len(calls) != 1 || calls[0] != path {
		t.Errorf("remove calls = %v, want [%s]", calls, path)
	}
}

func TestRemoveFileToleratesAbsentPath(t *testing.T) {
	remover := FileRemover{
		Remove: func(string) error { return errors.New("boom") },
		Exists: func(string) bool { return false },
	}
	if err := remover.RemoveFile("foo.bar"); err != nil {
		t.Errorf("RemoveFile of absent path = %v, want nil", err)
	}
}

func TestRemoveFileReturnsOriginalError(t *testing.T) {
	boom := errors.New("boom")
	remover := FileRemover{
		Remove: func(string) error { return boom },
		Exists: func(string) bool { return true },
	}
	if err := remover.RemoveFile("foo.bar"); err != boom {
		t.Errorf("RemoveFile = %v, want the original error unchanged", err)
	}
}

func TestRemoveFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "victim")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := RemoveFile(path); err != nil {
		t.Fatalf("RemoveFile: %v", err)
	}
	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Errorf("path still present after RemoveFile: %v", err)
	}
	if err := RemoveFile(path); err != nil {
		t.Errorf("second RemoveFile = %v, want nil", err)
	}
}

func TestRemoveFileNonEmptyDirectory(t *testing.T) {
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "child"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := RemoveFile(directory); err == nil {
		t.Error("RemoveFile of a non-empty directory succeeded, want the os.Remove error")
	}
}
