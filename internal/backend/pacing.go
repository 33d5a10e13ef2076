// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// PACING CONFIGURATION
// =============================================================================

// PacingConfig controls how decoded fragments are re-timed before delivery.
// Zero delays disable the live-typing simulation entirely: fragments are
// then delivered as fast as they decode, still in order and still drained
// before the call returns.
type PacingConfig struct {
	// CharDelayMin/CharDelayMax bound the uniform random pause between
	// characters (defaults 20ms and 40ms).
	CharDelayMin time.Duration
	CharDelayMax time.Duration

	// BatchDelay is the fixed pause between batches (default 30ms).
	BatchDelay time.Duration

	// BatchSize is how many queued fragments are concatenated per batch
	// (default 3).
	BatchSize int

	// Disabled skips all artificial delays regardless of the values above.
	Disabled bool
}

// DefaultPacingConfig returns the default live-typing pacing.
func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		CharDelayMin: 20 * time.Millisecond,
		CharDelayMax: 40 * time.Millisecond,
		BatchDelay:   30 * time.Millisecond,
		BatchSize:    3,
	}
}

// withDefaults fills unset fields. A fully zero config (the common case for
// callers that never touched pacing) gets the default typing simulation.
func (p PacingConfig) withDefaults() PacingConfig {
	if p.Disabled {
		return PacingConfig{BatchSize: defaultBatchSize(p.BatchSize), Disabled: true}
	}
	zero := p == PacingConfig{}
	if zero {
		return DefaultPacingConfig()
	}
	p.BatchSize = defaultBatchSize(p.BatchSize)
	if p.CharDelayMax < p.CharDelayMin {
		p.CharDelayMax = p.CharDelayMin
	}
	return p
}

func defaultBatchSize(n int) int {
	if n <= 0 {
		return 3
	}
	return n
}

// drainPollInterval is how often Wait re-checks queue emptiness. Abort
// guarantees hold at this granularity.
const drainPollInterval = 10 * time.Millisecond

// =============================================================================
// TYPIST
// =============================================================================

// Typist is the pacing queue for one streaming call. Fragments are enqueued
// as they decode and re-emitted one character at a time with randomized
// micro-delays, simulating live typing regardless of how bursty the network
// delivery was.
//
// A Typist runs at most one consumption loop; re-entrant Enqueue calls
// while the loop is live only append to the queue. Instances are created
// fresh inside ChatStream and never shared across calls.
type Typist struct {
	mu      sync.Mutex
	queue   []string
	running bool

	cfg   PacingConfig
	emit  DeltaFunc
	token *CancelToken
	rng   *rand.Rand
}

// newTypist creates a pacing queue delivering through emit and observing
// token at every suspension point.
func newTypist(cfg PacingConfig, emit DeltaFunc, token *CancelToken) *Typist {
	return &Typist{
		cfg:   cfg.withDefaults(),
		emit:  emit,
		token: token,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enqueue appends one content fragment and arms the consumption loop if it
// is not already live.
func (t *Typist) Enqueue(fragment string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token.Aborted() {
		return
	}

	t.queue = append(t.queue, fragment)
	if !t.running {
		t.running = true
		go t.consume()
	}
}

// consume is the single background loop: pop a batch, type it out, pause,
// repeat until the queue drains or the token aborts. Exit and queue checks
// happen under the same lock so a concurrent Enqueue either sees the loop
// still running or starts a new one, never neither.
func (t *Typist) consume() {
	for {
		t.mu.Lock()
		if t.token.Aborted() {
			t.queue = nil
			t.running = false
			t.mu.Unlock()
			return
		}
		if len(t.queue) == 0 {
			t.running = false
			t.mu.Unlock()
			return
		}

		n := t.cfg.BatchSize
		if n > len(t.queue) {
			n = len(t.queue)
		}
		batch := strings.Join(t.queue[:n], "")
		t.queue = t.queue[n:]
		t.mu.Unlock()

		if !t.typeOut(batch) {
			t.discard()
			return
		}
		if !t.pause(t.cfg.BatchDelay) {
			t.discard()
			return
		}
	}
}

// typeOut emits text one character at a time with a randomized pause
// between characters. Returns false if the token aborted mid-batch; any
// characters not yet emitted are dropped.
func (t *Typist) typeOut(text string) bool {
	for _, r := range text {
		if t.token.Aborted() {
			return false
		}
		t.emit(string(r))
		if !t.pause(t.charDelay()) {
			return false
		}
	}
	return true
}

// charDelay draws the next inter-character delay.
func (t *Typist) charDelay() time.Duration {
	if t.cfg.Disabled {
		return 0
	}
	min, max := t.cfg.CharDelayMin, t.cfg.CharDelayMax
	if max <= min {
		return min
	}
	return min + time.Duration(t.rng.Int63n(int64(max-min)))
}

// pause sleeps for d unless the token aborts first. Returns true if the
// full pause elapsed.
func (t *Typist) pause(d time.Duration) bool {
	if t.cfg.Disabled || d <= 0 {
		return !t.token.Aborted()
	}
	select {
	case <-t.token.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// discard clears pending fragments and releases the loop slot. Called on
// abort so a cancelled call never delivers queued leftovers.
func (t *Typist) discard() {
	t.mu.Lock()
	t.queue = nil
	t.running = false
	t.mu.Unlock()
}

// pending reports whether undelivered work remains.
func (t *Typist) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running || len(t.queue) > 0
}

// Wait blocks until every enqueued fragment has been delivered, the token
// aborts, or ctx expires. ChatStream calls this after the terminal sentinel
// so the caller sees every character that arrived before [DONE].
func (t *Typist) Wait(ctx context.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for t.pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.token.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
