// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
)

// =============================================================================
// SSE DECODING
// =============================================================================

const (
	// eventPrefix marks a server-sent event line.
	eventPrefix = "data: "

	// doneSentinel is the literal payload that terminates a stream.
	doneSentinel = "[DONE]"

	// maxEventSize caps a single SSE line (64KB).
	maxEventSize = 64 * 1024
)

// StreamError is a failure the backend reported inside an otherwise healthy
// stream, via a "data: {\"error\": ...}" event. It terminates the stream
// immediately and is never retried, since fragments before it have already
// been delivered.
type StreamError struct {
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}

// EventReader decodes server-sent events from a byte stream. Lines may span
// read boundaries; bufio reassembles partial lines, and a trailing partial
// line at EOF is discarded because it can never be completed.
type EventReader struct {
	reader *bufio.Reader
	token  *CancelToken
}

// NewEventReader creates an EventReader over r, observing token at every
// read so an abort surfaces as a clean end-of-stream.
func NewEventReader(r io.Reader, token *CancelToken) *EventReader {
	return &EventReader{
		reader: bufio.NewReaderSize(r, 4*1024),
		token:  token,
	}
}

// Decode reads events until the terminal sentinel, EOF, or an error event,
// invoking emit once per content fragment in arrival order. Malformed JSON
// on a single line is logged and skipped; it never aborts the stream. After
// an abort, read failures from the torn-down connection are swallowed and
// Decode returns nil.
func (r *EventReader) Decode(emit func(string)) error {
	for {
		select {
		case <-r.token.Done():
			return nil
		default:
		}

		line, err := r.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// Any partial trailing line in `line` is discarded.
				return nil
			}
			if r.token.Aborted() {
				return nil
			}
			return &APIError{
				Message:   fmt.Sprintf("stream read failed: %v", err),
				Transient: true,
			}
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) > maxEventSize {
			log.Printf("skipping oversized SSE event (%d bytes)", len(line))
			continue
		}
		if !bytes.HasPrefix(line, []byte(eventPrefix)) {
			// Blank keep-alive lines and unknown fields (id:, retry:) are
			// ignored per the SSE framing.
			continue
		}

		payload := line[len(eventPrefix):]
		if bytes.Equal(payload, []byte(doneSentinel)) {
			return nil
		}

		var ev streamEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("skipping malformed SSE event: %v", err)
			continue
		}

		if ev.Err != "" {
			return &StreamError{Message: ev.Err}
		}
		if ev.Content != "" {
			emit(ev.Content)
		}
	}
}
