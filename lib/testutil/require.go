// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Eventually polls condition until it reports true, failing the test
// if that does not happen within timeout. what names the awaited
// condition in the failure message.
//
//	testutil.Eventually(t, 5*time.Second, conn.Closed, "connection closed")
func Eventually(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, timeout time.Duration, condition func() bool, what string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, fmt.Sprintf(what, args...))
		}
		time.Sleep(pollInterval)
	}
}

const pollInterval = 5 * time.Millisecond
