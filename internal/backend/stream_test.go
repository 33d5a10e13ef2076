// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer returns a test server that writes the given SSE lines with a
// flush after each one, simulating fragment-by-fragment network arrival.
func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/app/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
			flusher.Flush()
		}
	}))
}

// deltaRecorder accumulates callback invocations for assertions.
type deltaRecorder struct {
	mu     sync.Mutex
	deltas []string
}

func (r *deltaRecorder) record(delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, delta)
}

func (r *deltaRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.deltas...)
}

func (r *deltaRecorder) joined() string {
	return strings.Join(r.all(), "")
}

// =============================================================================
// STREAMING DELIVERY
// =============================================================================

func TestChatStream_DeliversCharactersInOrder(t *testing.T) {
	server := sseServer(t,
		`data: {"content":"ab"}`,
		`data: {"content":"cd"}`,
		`data: [DONE]`,
	)
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	rec := &deltaRecorder{}

	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, nil)
	require.NoError(t, err)

	// One character per invocation, exact arrival order, and the call
	// resolves only after all four were delivered.
	assert.Equal(t, []string{"a", "b", "c", "d"}, rec.all())
}

func TestChatStream_RoundTripReconstructsContent(t *testing.T) {
	fragments := []string{"The ", "quick brown ", "fox", " jumps over", " the lazy dog."}
	lines := make([]string, 0, len(fragments)+1)
	for _, f := range fragments {
		lines = append(lines, fmt.Sprintf(`data: {"content":%q}`, f))
	}
	lines = append(lines, `data: [DONE]`)

	server := sseServer(t, lines...)
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	rec := &deltaRecorder{}

	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(fragments, ""), rec.joined())
}

func TestChatStream_MalformedLineSkipped(t *testing.T) {
	server := sseServer(t,
		`data: {"content":"before"}`,
		`data: {not json}`,
		`data: {"content":"after"}`,
		`data: [DONE]`,
	)
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	rec := &deltaRecorder{}

	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, nil)
	require.NoError(t, err)
	assert.Equal(t, "beforeafter", rec.joined())
}

func TestChatStream_ErrorEventFailsStream(t *testing.T) {
	server := sseServer(t,
		`data: {"content":"partial"}`,
		`data: {"error":"model exploded"}`,
		`data: {"content":"never delivered"}`,
		`data: [DONE]`,
	)
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	rec := &deltaRecorder{}

	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, nil)
	require.Error(t, err)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "model exploded", streamErr.Message)
	assert.NotContains(t, rec.joined(), "never delivered")
}

func TestChatStream_NilCallbackFailsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, nil, nil)
	require.ErrorIs(t, err, ErrNoCallback)
	assert.Equal(t, int32(0), hits.Load())
}

func TestChatStream_PermanentHTTPErrorPropagates(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "empty message"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, func(string) {}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestChatStream_TransientConnectErrorRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"ok\"}\ndata: [DONE]\n")
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	rec := &deltaRecorder{}
	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", rec.joined())
	assert.Equal(t, int32(2), attempts.Load())
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestChatStream_CancelAfterFirstDelta(t *testing.T) {
	server := sseServer(t,
		`data: {"content":"abcdefghij"}`,
		`data: {"content":"klmnopqrst"}`,
		`data: [DONE]`,
	)
	defer server.Close()

	cfg := testConfig(server.URL)
	// Slow enough pacing that the abort lands mid-delivery.
	cfg.Pacing = PacingConfig{
		CharDelayMin: 5 * time.Millisecond,
		CharDelayMax: 10 * time.Millisecond,
		BatchDelay:   5 * time.Millisecond,
		BatchSize:    3,
	}
	client := NewClient(cfg)

	token := NewCancelToken()
	rec := &deltaRecorder{}
	var once sync.Once

	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, func(delta string) {
		rec.record(delta)
		once.Do(token.Abort)
	}, token)

	// User cancellation is not an error.
	require.NoError(t, err)

	// The first character was delivered, then the abort stopped the queue
	// before anything else went out.
	deltas := rec.all()
	require.NotEmpty(t, deltas)
	assert.Equal(t, "a", deltas[0])
	assert.Less(t, len(deltas), 3, "abort must stop delivery at the next poll point")

	// No further invocations after the call resolved.
	n := len(rec.all())
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, len(rec.all()))
}

func TestChatStream_AbortBeforeCallResolvesCleanly(t *testing.T) {
	server := sseServer(t, `data: {"content":"hi"}`, `data: [DONE]`)
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	token := NewCancelToken()
	token.Abort()

	rec := &deltaRecorder{}
	err := client.ChatStream(context.Background(), ChatRequest{Message: "hello"}, rec.record, token)
	require.NoError(t, err)
	assert.Empty(t, rec.all())
}

func TestCancelToken_AbortIdempotent(t *testing.T) {
	token := NewCancelToken()
	require.False(t, token.Aborted())

	token.Abort()
	assert.True(t, token.Aborted())

	// A second abort must not panic (double channel close) or change state.
	require.NotPanics(t, token.Abort)
	assert.True(t, token.Aborted())

	select {
	case <-token.Done():
	default:
		t.Fatal("done channel must be closed after abort")
	}
}

func TestCancelToken_HooksRunOnceAndLateRegistrationFires(t *testing.T) {
	token := NewCancelToken()
	var calls atomic.Int32
	token.register(func() { calls.Add(1) })

	token.Abort()
	token.Abort()
	assert.Equal(t, int32(1), calls.Load())

	// Registering after abort runs the hook immediately.
	token.register(func() { calls.Add(1) })
	assert.Equal(t, int32(2), calls.Load())
}
