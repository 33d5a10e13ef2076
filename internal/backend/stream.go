// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// STREAMING ENTRY POINT
// =============================================================================

// ChatStream performs a streaming chat completion. Decoded fragments are
// re-paced and delivered through onDelta one character at a time, in strict
// arrival order; ChatStream returns only after every character that arrived
// before the terminal sentinel has been delivered, or after cancellation.
//
// Cancellation via token is not an error: an aborted call stops network I/O
// and pacing within one polling interval and resolves nil with no further
// onDelta invocations. Every other failure (network after retries, 4xx,
// exhausted 5xx retries, or an error event inside the stream) surfaces as a
// classified failure.
//
// A nil onDelta is a configuration error and fails synchronously before any
// network I/O. A nil token makes the call non-cancellable from outside.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onDelta DeltaFunc, token *CancelToken) error {
	if onDelta == nil {
		return ErrNoCallback
	}
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}
	if token == nil {
		token = NewCancelToken()
	}
	c.fillRequest(&req)

	if err := c.waitLimiter(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	// Aborting the token cancels this context, which tears down the
	// connection and fails the reader's next blocking read.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	token.register(cancel)

	resp, err := c.doWithRetry(streamCtx, &request{
		method: http.MethodPost,
		path:   "/app/stream",
		body:   body,
		stream: true,
	})
	if err != nil {
		if token.Aborted() {
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	typist := newTypist(c.pacing, onDelta, token)
	reader := NewEventReader(resp.Body, token)

	if err := reader.Decode(typist.Enqueue); err != nil {
		// An in-stream error preempts anything still queued.
		typist.discard()
		if token.Aborted() {
			return nil
		}
		return err
	}

	if err := typist.Wait(ctx); err != nil {
		return err
	}
	if token.Aborted() {
		return nil
	}
	return nil
}

// fillRequest applies client-level defaults to a chat request.
func (c *Client) fillRequest(req *ChatRequest) {
	if req.UserID == "" {
		req.UserID = c.UserID()
	}
	if req.Function == "" {
		req.Function = FunctionGeneral
	}
	if req.ChatHistory == nil {
		req.ChatHistory = []HistoryTurn{}
	}
	if req.GameCollection == nil {
		req.GameCollection = []Game{}
	}
}
