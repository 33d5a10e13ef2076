// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the HTTP client for the GameSage chat service.
//
// The backend exposes a small JSON API for chat completions, document
// upload, conversation memory management, and credential exchange. This
// package wraps that API behind a resilient request pipeline:
//
//	Client.Chat / Client.ChatStream
//	     |
//	     +-- retry layer: linear backoff, transient failures only
//	     |
//	     +-- transport: one timeout-bounded HTTP attempt
//	     |
//	     v
//	EventReader (SSE decode) --> Typist (paced delivery) --> caller callback
//
// Streaming responses arrive as server-sent events, one "data: <json>"
// line per fragment, terminated by a literal "data: [DONE]" line. The
// Typist re-emits decoded fragments character by character with small
// randomized delays so a terminal UI can render the reply as if it were
// being typed live. Both the network read and the paced delivery observe
// a shared CancelToken, so a user-initiated stop tears the whole call
// down within one polling interval without surfacing an error.
//
// Failures are classified into two buckets: transient (network errors,
// timeouts, HTTP 5xx) which the retry layer may re-attempt, and permanent
// (HTTP 4xx, malformed requests) which fail immediately. All failures
// reaching the caller are *APIError values, so callers can branch on
// Status without inspecting transport details.
package backend
