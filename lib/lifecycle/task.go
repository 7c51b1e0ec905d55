// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is a background goroutine started by [Spawn].
type Task struct {
	group *errgroup.Group
}

// Spawn starts target in a new goroutine. The caller must call Wait
// (usually deferred) to join it. The context passed to target is ctx
// itself: Spawn never cancels it, so the owner decides when the task
// should stop.
func Spawn(ctx context.Context, target func(ctx context.Context) error) *Task {
	group := new(errgroup.Group)
	group.Go(func() error {
		return target(ctx)
	})
	return &Task{group: group}
}

// Wait blocks until the task's goroutine has returned and reports its
// error. Wait may be called more than once; every call returns the same
// result.
func (t *Task) Wait() error {
	return t.group.Wait()
}

// WithTask runs body while target runs in the background and joins
// target before returning, on every exit path of body: normal return,
// error, or panic. A panic in body is re-raised after the join.
//
// WithTask does not stop target. Callers that need target to finish
// when body does should cancel target's context from body, typically
// with a deferred cancel func, the way the agent server stops its accept
// loop.
//
// The returned error is body's error if non-nil, otherwise target's.
func WithTask(ctx context.Context, target func(ctx context.Context) error, body func(ctx context.Context) error) (err error) {
	task := Spawn(ctx, target)
	defer func() {
		taskErr := task.Wait()
		if err == nil {
			err = taskErr
		}
	}()
	return body(ctx)
}
