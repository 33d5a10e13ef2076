// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the chat view.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/util"
)

// =============================================================================
// TOP-LEVEL LAYOUT
// =============================================================================

func (m Model) renderChat() string {
	if m.showHelp {
		return m.renderHelp()
	}

	sections := make([]string, 0, 4)
	if !m.compact {
		sections = append(sections, m.renderHeader())
	}
	sections = append(sections,
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := "GameSage"
	mode := model.FunctionDisplayName(m.manager.Function())

	left := m.theme.Header.Render(title)
	right := m.theme.StatusBar.Render(mode)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderInput() string {
	sep := m.theme.Separator.Render(strings.Repeat("─", max(m.width, 1)))

	var line string
	if m.state == StateStreaming {
		line = m.spinner.View() + " " + m.theme.Hint.Render("thinking... (esc to cancel)")
	} else {
		line = m.input.View()
	}

	return sep + "\n" + line
}

func (m Model) renderStatusBar() string {
	var parts []string

	switch {
	case m.lastErr != nil:
		parts = append(parts, m.theme.Error.Render("error: "+m.lastErr.Error()))
	case m.statusMsg != "":
		parts = append(parts, m.statusMsg)
	default:
		parts = append(parts, fmt.Sprintf("%d messages", m.manager.Conversation().MessageCount()))
	}

	if m.manager.IsDirty() {
		parts = append(parts, "unsaved")
	}
	parts = append(parts, "ctrl+h help")

	line := strings.Join(parts, "  |  ")
	if m.width > 0 {
		line = util.ClipWidth(line, m.width-2)
	}
	return m.theme.StatusBar.Render(line)
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func (m Model) renderMessages() string {
	conv := m.manager.Conversation()
	if conv.MessageCount() == 0 {
		return m.theme.Hint.Render("\n  Ask about your games. Switch modes with /function.\n")
	}

	width := m.width - 4
	if width < 20 {
		width = 76
	}
	body := m.theme.MessageBody.Width(width)

	var b strings.Builder
	for _, msg := range conv.Messages {
		label := m.theme.RoleLabel(string(msg.Role)).Render(msg.Role.DisplayName())
		ts := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

		b.WriteString(label + " " + ts + "\n")

		content := msg.GetDisplayContent()
		if content == "" && msg.IsStreaming {
			content = "..."
		}
		b.WriteString(body.Render(content))
		b.WriteString("\n")

		if !msg.IsStreaming && msg.Role == model.RoleAssistant && msg.TotalDuration > 0 {
			b.WriteString(m.theme.StatsLine.Render(msg.FormatStats()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, kb := range m.keyMap.Bindings() {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			m.theme.InputPrompt.Render(fmt.Sprintf("%-16s", kb.Key)),
			kb.Help))
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Hint.Render("  Slash commands: /function /new /clear /quit"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.Hint.Render("  Press any key to close"))
	return b.String()
}
