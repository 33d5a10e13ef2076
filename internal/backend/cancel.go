// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "sync"

// =============================================================================
// CANCEL TOKEN
// =============================================================================

// CancelToken coordinates cooperative cancellation across one streaming
// call: the HTTP transport, the SSE reader, and the pacing loop all watch
// the same token. A token transitions to aborted at most once and is never
// reused across calls.
//
// IMPORTANT: Always pass tokens by pointer; the zero value is not usable,
// use NewCancelToken.
type CancelToken struct {
	mu      sync.Mutex
	done    chan struct{}
	aborted bool
	onAbort []func()
}

// NewCancelToken creates a fresh, un-aborted token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Abort marks the token aborted and runs registered teardown hooks.
// Safe to call multiple times and from any goroutine; every call after
// the first is a no-op.
func (t *CancelToken) Abort() {
	t.mu.Lock()
	if t.aborted {
		t.mu.Unlock()
		return
	}
	t.aborted = true
	hooks := t.onAbort
	t.onAbort = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// Aborted reports whether Abort has been called.
func (t *CancelToken) Aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aborted
}

// Done returns a channel closed on abort, for use in select loops.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// register adds a teardown hook. If the token is already aborted the hook
// runs immediately, so late registration cannot miss the signal.
func (t *CancelToken) register(fn func()) {
	t.mu.Lock()
	if t.aborted {
		t.mu.Unlock()
		fn()
		return
	}
	t.onAbort = append(t.onAbort, fn)
	t.mu.Unlock()
}
