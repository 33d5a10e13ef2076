// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat view for the gamesage TUI.
//
// The view streams replies through the backend client's paced delivery: a
// goroutine feeds fragments into an event channel and waitForStreamEvent
// pumps them into the update loop one StreamDeltaMsg at a time, so the
// terminal stays responsive and esc/ctrl+c can abort mid-reply.
//
// Session bookkeeping (mode, history window, auto-save) is delegated to
// session.Manager; finished conversations are persisted through
// storage.Store when one is attached.
package chat
