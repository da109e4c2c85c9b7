// Package testutil holds helpers for tests that wait on asynchronous work.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Timeout and interval used by tests that have no reason to pick their own.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultInterval = 5 * time.Millisecond
)

// Poll calls condition every interval until it returns true, timeout elapses,
// or ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitFor(ctx, func() bool { return condition() }, func(ok bool) bool { return ok }, timeout, interval)
	if err != nil {
		return fmt.Errorf("timeout waiting for condition (threshold: %v): %w", timeout, err)
	}
	return nil
}

// WaitFor calls getter every interval until predicate accepts its result,
// which is returned.
func WaitFor[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		v := getter()
		if predicate(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ticker.C:
		}
	}
}
