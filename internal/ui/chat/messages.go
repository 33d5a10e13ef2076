// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Bubble Tea message types for the chat view.
package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals a new streamed reply has begun.
type StreamStartMsg struct {
	MessageID string
}

// StreamDeltaMsg carries one paced fragment of the streamed reply.
type StreamDeltaMsg struct {
	MessageID string
	Delta     string
}

// StreamCompleteMsg signals the stream finished. Err is nil on success and
// on user cancellation; Aborted distinguishes the two.
type StreamCompleteMsg struct {
	MessageID string
	Aborted   bool
	Err       error
}

// =============================================================================
// UI MESSAGES
// =============================================================================

// StatusMsg sets a transient status bar message.
type StatusMsg struct {
	Text string
}

// ErrorMsg surfaces an error in the status bar.
type ErrorMsg struct {
	Err error
}

// =============================================================================
// STREAM EVENT BRIDGE
// =============================================================================

// streamEvent is what the ChatStream goroutine pushes into the event
// channel: either one delta or the terminal result.
type streamEvent struct {
	delta   string
	done    bool
	aborted bool
	err     error
}

// waitForStreamEvent returns a command that blocks on the next stream event
// and converts it into a Bubble Tea message. The update loop re-issues it
// after each delta, pumping the channel one message at a time.
func waitForStreamEvent(messageID string, ch <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		if ev.done {
			return StreamCompleteMsg{MessageID: messageID, Aborted: ev.aborted, Err: ev.err}
		}
		return StreamDeltaMsg{MessageID: messageID, Delta: ev.delta}
	}
}
