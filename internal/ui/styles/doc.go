// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the gamesage TUI
// and CLI.
//
// Colors are defined as lipgloss.AdaptiveColor values so the same palette
// reads well on light and dark terminals. The Theme type bundles the
// pre-built styles the chat view renders with; build one with NewTheme and
// call SetSize on terminal resize.
//
// Status indicators are ASCII shapes ([OK], [X], [!]) so state remains
// readable without color.
package styles
