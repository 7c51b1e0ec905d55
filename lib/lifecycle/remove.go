// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import "os"

// FileRemover deletes files and tolerates targets that are already
// gone. The zero value uses os.Remove and os.Lstat; tests substitute
// either function.
type FileRemover struct {
	// Remove deletes path. Defaults to os.Remove.
	Remove func(path string) error

	// Exists reports whether path is still present after a failed
	// Remove. Defaults to an os.Lstat check, so a dangling symlink or a
	// socket counts as present.
	Exists func(path string) bool
}

// RemoveFile deletes path. If deletion fails and path is confirmed
// absent, the failure is swallowed: someone else removed it first, or it
// never existed. If path is still present the original error from
// Remove is returned unchanged.
func (r FileRemover) RemoveFile(path string) error {
	remove := r.Remove
	if remove == nil {
		remove = os.Remove
	}
	exists := r.Exists
	if exists == nil {
		exists = pathExists
	}

	err := remove(path)
	if err == nil {
		return nil
	}
	if !exists(path) {
		return nil
	}
	return err
}

// RemoveFile deletes path using os.Remove, tolerating its absence.
func RemoveFile(path string) error {
	return FileRemover{}.RemoveFile(path)
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
