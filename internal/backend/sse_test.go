// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectFragments decodes the given stream body and returns the emitted
// fragments.
func collectFragments(t *testing.T, body string) ([]string, error) {
	t.Helper()
	var fragments []string
	reader := NewEventReader(strings.NewReader(body), NewCancelToken())
	err := reader.Decode(func(content string) {
		fragments = append(fragments, content)
	})
	return fragments, err
}

func TestEventReader_BasicStream(t *testing.T) {
	fragments, err := collectFragments(t, "data: {\"content\":\"ab\"}\ndata: {\"content\":\"cd\"}\ndata: [DONE]\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "cd"}, fragments)
}

func TestEventReader_EventsAfterDoneIgnored(t *testing.T) {
	fragments, err := collectFragments(t, "data: {\"content\":\"a\"}\ndata: [DONE]\ndata: {\"content\":\"late\"}\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fragments)
}

func TestEventReader_NonEventLinesIgnored(t *testing.T) {
	body := ": keep-alive\n" +
		"id: 17\n" +
		"\n" +
		"data: {\"content\":\"x\"}\n" +
		"data: [DONE]\n"
	fragments, err := collectFragments(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, fragments)
}

func TestEventReader_CRLFLines(t *testing.T) {
	fragments, err := collectFragments(t, "data: {\"content\":\"a\"}\r\ndata: [DONE]\r\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fragments)
}

func TestEventReader_MalformedLineSkipped(t *testing.T) {
	body := "data: {\"content\":\"a\"}\n" +
		"data: {not json}\n" +
		"data: {\"content\":\"b\"}\n" +
		"data: [DONE]\n"
	fragments, err := collectFragments(t, body)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fragments)
}

func TestEventReader_TrailingPartialLineDiscarded(t *testing.T) {
	// Stream ends mid-line; the incomplete event can never be finished.
	fragments, err := collectFragments(t, "data: {\"content\":\"done\"}\ndata: {\"content\":\"trunc")
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, fragments)
}

func TestEventReader_PartialLinesAcrossReads(t *testing.T) {
	// A reader that returns one byte at a time forces every line to span
	// many reads; the decoder must reassemble them.
	body := "data: {\"content\":\"hello\"}\ndata: [DONE]\n"
	var fragments []string
	reader := NewEventReader(iotest(body), NewCancelToken())
	err := reader.Decode(func(content string) {
		fragments = append(fragments, content)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, fragments)
}

func TestEventReader_ErrorEventStopsImmediately(t *testing.T) {
	body := "data: {\"content\":\"a\"}\n" +
		"data: {\"error\":\"backend failure\"}\n" +
		"data: {\"content\":\"b\"}\n"
	fragments, err := collectFragments(t, body)
	require.Error(t, err)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "backend failure", streamErr.Message)
	assert.Equal(t, []string{"a"}, fragments, "events after the error are preempted")
}

func TestEventReader_AbortedTokenSuppressesReadErrors(t *testing.T) {
	token := NewCancelToken()
	token.Abort()

	reader := NewEventReader(&failingReader{}, token)
	err := reader.Decode(func(string) {
		t.Fatal("no fragments expected after abort")
	})
	assert.NoError(t, err)
}

func TestEventReader_ReadErrorWithoutAbortIsTransient(t *testing.T) {
	reader := NewEventReader(&failingReader{}, NewCancelToken())
	err := reader.Decode(func(string) {})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transient)
	assert.Equal(t, 0, apiErr.Status)
}

// iotest wraps a string in a reader that yields one byte per Read call.
func iotest(s string) io.Reader {
	return &oneByteReader{data: []byte(s)}
}

type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

// failingReader fails every read with a connection-reset style error.
type failingReader struct{}

func (r *failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}
