// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the gamesage command-line interface.
//
// The package provides argument parsing, command dispatch, and the
// non-TUI command handlers:
//
//   - ask: one-shot streamed question
//   - chat: interactive liner-based REPL with slash commands
//   - chats: saved-chat list/search/show/export/delete
//   - games: local game collection management
//   - config, upload, memory, login, register, status, version
//
// Output respects NO_COLOR/FORCE_COLOR and degrades cleanly when
// stdout is not a terminal: markdown rendering and typed-output pacing
// are only applied on a TTY. Handlers exit through GetExitCode, which
// maps error types to stable shell exit codes (2 usage, 4 auth,
// 5 network, 7 not found).
package cli
