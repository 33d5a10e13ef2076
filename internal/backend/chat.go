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

// FallbackResponse is returned by Chat when the backend answers with an
// empty or missing response field.
const FallbackResponse = "Sorry, no response was generated. Please try again."

// =============================================================================
// NON-STREAMING ENTRY POINT
// =============================================================================

// Chat performs a single chat completion through the retry layer and
// returns the full response text. It never touches the SSE decoder or the
// pacing queue; failures carry the same classification as ChatStream.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrEmptyMessage
	}
	c.fillRequest(&req)

	body, err := json.Marshal(req)
	if err != nil {
		return "", &APIError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	var chatResp ChatResponse
	if err := c.doJSON(ctx, &request{
		method: http.MethodPost,
		path:   "/app",
		body:   body,
	}, &chatResp); err != nil {
		return "", err
	}

	if chatResp.Response == "" {
		return FallbackResponse, nil
	}
	return chatResp.Response, nil
}

// =============================================================================
// CONVERSATION MEMORY
// =============================================================================

// ClearMemory clears the server-side conversation context for the current
// user across all function modes.
func (c *Client) ClearMemory(ctx context.Context) (*MemoryResult, error) {
	var result MemoryResult
	if err := c.doJSON(ctx, &request{
		method: http.MethodPost,
		path:   "/memory/clear",
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearMemoryFor clears the server-side conversation context for one
// function mode only.
func (c *Client) ClearMemoryFor(ctx context.Context, fn Function) (*MemoryResult, error) {
	var result MemoryResult
	if err := c.doJSON(ctx, &request{
		method: http.MethodPost,
		path:   "/memory/clear/" + fn.String(),
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
