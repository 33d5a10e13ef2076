// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig returns a client config pointed at a test server with fast
// retries and no artificial pacing.
func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Timeout:        2 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 40 * time.Millisecond,
		RatePerSec:     0,
		Pacing:         PacingConfig{Disabled: true},
	}
}

// =============================================================================
// NON-STREAMING CHAT
// =============================================================================

func TestChat_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/app", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": "X"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	got, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "X", got)
}

func TestChat_FallbackOnEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	got, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, got)
}

func TestChat_EmptyMessageRejectedBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), ChatRequest{Message: "   "})
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, int32(0), hits.Load())
}

func TestChat_RequestBodyCarriesContext(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.Write([]byte(`{"response": "ok"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), ChatRequest{
		Message:  "recommend something",
		Function: FunctionPlay,
		UserID:   "u-42",
		ChatHistory: []HistoryTurn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
		GameCollection: []Game{
			{Name: "Hollow Knight", Genres: []string{"metroidvania"}, Platform: "PC", Rating: 9.5},
		},
	})
	require.NoError(t, err)

	body := string(gotBody)
	assert.Contains(t, body, `"function":"play"`)
	assert.Contains(t, body, `"user_id":"u-42"`)
	assert.Contains(t, body, `"Hollow Knight"`)
	assert.Contains(t, body, `"chat_history"`)
}

// =============================================================================
// RETRY AND CLASSIFICATION
// =============================================================================

func TestRetry_PermanentFailureNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "no such endpoint"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.False(t, apiErr.Transient)
	assert.Equal(t, "no such endpoint", apiErr.Message)
	assert.Equal(t, int32(1), attempts.Load(), "4xx must fail on the first attempt")
}

func TestRetry_TransientFailureRetriedThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	var attemptTimes []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attemptTimes = append(attemptTimes, time.Now())
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response": "recovered"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	got, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, int32(3), attempts.Load())

	// Linear backoff: the wait before attempt 3 must not be shorter than
	// the wait before attempt 2.
	require.Len(t, attemptTimes, 3)
	gap1 := attemptTimes[1].Sub(attemptTimes[0])
	gap2 := attemptTimes[2].Sub(attemptTimes[1])
	assert.GreaterOrEqual(t, gap1, 40*time.Millisecond)
	assert.GreaterOrEqual(t, gap2, gap1)
}

func TestRetry_ExhaustedSurfacesLastFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.True(t, apiErr.Transient)
	assert.Equal(t, int32(3), attempts.Load(), "5xx retries up to the ceiling")
}

func TestRetry_NetworkFailureClassifiedTransient(t *testing.T) {
	// Point at a closed port: connection refused on every attempt.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status, "network failures carry status 0")
	assert.True(t, apiErr.Transient)
}

func TestRetry_TimeoutClassifiedTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"response": "too late"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Timeout = 50 * time.Millisecond
	cfg.MaxRetries = 1
	client := NewClient(cfg)

	_, err := client.Chat(context.Background(), ChatRequest{Message: "hello"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.True(t, apiErr.Transient)
}

// =============================================================================
// ERROR CLASSIFICATION HELPERS
// =============================================================================

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		message   string
	}{
		{"fastapi detail", 400, `{"detail": "message is empty"}`, false, "message is empty"},
		{"nested error", 422, `{"error": {"message": "bad payload"}}`, false, "bad payload"},
		{"flat message", 401, `{"success": false, "message": "wrong password"}`, false, "wrong password"},
		{"plain text 4xx", 403, `forbidden`, false, "forbidden"},
		{"empty body 4xx", 404, ``, false, "Not Found"},
		{"server error", 500, `boom`, true, "server error"},
		{"gateway", 503, `{"detail": "overloaded"}`, true, "overloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := classifyStatus(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.transient, apiErr.Transient)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&APIError{Status: 503, Transient: true}))
	assert.False(t, IsTransient(&APIError{Status: 404}))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(nil))
}

// =============================================================================
// MEMORY AND AUTH ENDPOINTS
// =============================================================================

func TestClearMemory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memory/clear", r.URL.Path)
		w.Write([]byte(`{"message": "memory cleared"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.ClearMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory cleared", result.Message)
}

func TestClearMemoryFor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/memory/clear/doc_qa", r.URL.Path)
		w.Write([]byte(`{"message": "doc_qa memory cleared"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.ClearMemoryFor(context.Background(), FunctionDocQA)
	require.NoError(t, err)
	assert.Equal(t, "doc_qa memory cleared", result.Message)
}

func TestLogin_StoresSessionToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		w.Write([]byte(`{"success": true, "token": "tok-123", "user_id": "u-7"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "u-7", client.UserID())
}

func TestLogin_BadCredentialsPermanent(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success": false, "message": "invalid credentials"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, "default", client.UserID(), "failed login must not change identity")
}

func TestLogin_EmptyCredentialsRejectedLocally(t *testing.T) {
	client := NewClient(testConfig("http://localhost:0"))
	_, err := client.Login(context.Background(), "", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "guide.txt", header.Filename)
		w.Write([]byte(`{"success": true, "filename": "guide.txt", "chunks_created": 4}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.Upload(context.Background(), "/tmp/guide.txt", bytes.NewBufferString("boss strategies"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 4, result.ChunksCreated)
}
