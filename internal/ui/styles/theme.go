// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// THEME
// =============================================================================

// Theme holds the pre-built lipgloss styles for the TUI. Styles are built
// once and resized on terminal resize rather than rebuilt per frame.
type Theme struct {
	width  int
	height int

	// Chrome
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Separator lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style
	StatsLine      lipgloss.Style

	// Input
	InputPrompt lipgloss.Style
	InputLine   lipgloss.Style

	// Feedback
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Hint    lipgloss.Style
	Spinner lipgloss.Style
}

// NewTheme builds the default theme.
func NewTheme() *Theme {
	return &Theme{
		width:  80,
		height: 24,

		Header: lipgloss.NewStyle().
			Foreground(TextInverse).
			Background(Purple).
			Bold(true).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(TextSecondary).
			Background(SurfaceDim).
			Padding(0, 1),

		Separator: lipgloss.NewStyle().Foreground(Overlay),

		UserLabel:      lipgloss.NewStyle().Foreground(UserFg).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(AssistantFg).Bold(true),
		SystemLabel:    lipgloss.NewStyle().Foreground(SystemFg).Bold(true),
		MessageBody:    lipgloss.NewStyle().Foreground(TextPrimary),
		Timestamp:      lipgloss.NewStyle().Foreground(TextMuted),
		StatsLine:      lipgloss.NewStyle().Foreground(TextMuted).Italic(true),

		InputPrompt: lipgloss.NewStyle().Foreground(Cyan).Bold(true),
		InputLine:   lipgloss.NewStyle().Foreground(TextPrimary),

		Error:   lipgloss.NewStyle().Foreground(Rose).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(Amber),
		Success: lipgloss.NewStyle().Foreground(Emerald).Bold(true),
		Hint:    lipgloss.NewStyle().Foreground(TextMuted),
		Spinner: lipgloss.NewStyle().Foreground(Purple),
	}
}

// SetSize records the terminal dimensions for width-dependent styles.
func (t *Theme) SetSize(width, height int) {
	t.width = width
	t.height = height
}

// Width returns the current terminal width.
func (t *Theme) Width() int {
	return t.width
}

// Height returns the current terminal height.
func (t *Theme) Height() int {
	return t.height
}

// RoleLabel returns the label style for a message role string.
func (t *Theme) RoleLabel(role string) lipgloss.Style {
	switch role {
	case "user":
		return t.UserLabel
	case "assistant":
		return t.AssistantLabel
	default:
		return t.SystemLabel
	}
}
