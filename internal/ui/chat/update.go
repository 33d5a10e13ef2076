// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// update.go - Key handling and slash commands for the chat view.
package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamesage/gamesage-tui/internal/model"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	// Help overlay swallows keys until dismissed.
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch keyStr {
	case "ctrl+c":
		if m.state == StateStreaming {
			m.cancelStream()
			return m, nil
		}
		m.SaveCurrent()
		return m, tea.Quit

	case "ctrl+h":
		m.showHelp = true
		return m, nil

	case "ctrl+l":
		m.manager.Conversation().ClearHistory()
		m.manager.MarkDirty()
		m.updateViewport()
		m.statusMsg = "Conversation cleared"
		return m, nil

	case "ctrl+n":
		m.SaveCurrent()
		m.manager.StartNew()
		m.updateViewport()
		m.statusMsg = "New conversation"
		return m, nil

	case "esc":
		if m.state == StateStreaming {
			m.cancelStream()
		}
		return m, nil

	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil

	case "home":
		m.viewport.GotoTop()
		return m, nil

	case "end":
		m.viewport.GotoBottom()
		return m, nil

	case "up":
		m.viewport.LineUp(1)
		return m, nil

	case "down":
		m.viewport.LineDown(1)
		return m, nil

	case "enter":
		if m.state != StateReady {
			return m, nil
		}
		input := strings.TrimSpace(m.input.Value())
		if input == "" {
			return m, nil
		}
		return m.submitInput(input)
	}

	if m.state == StateReady {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

func (m Model) submitInput(input string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	m.lastErr = nil

	if strings.HasPrefix(input, "/") {
		return m.handleSlashCommand(input)
	}

	cmd := m.startStream(input)
	m.updateViewport()
	m.viewport.GotoBottom()
	return m, cmd
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) handleSlashCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h":
		m.showHelp = true
		return m, nil

	case "/function", "/f", "/mode":
		if len(args) == 0 {
			m.statusMsg = "Mode: " + model.FunctionDisplayName(m.manager.Function())
			return m, nil
		}
		info, ok := model.LookupFunction(strings.Join(args, " "))
		if !ok {
			m.lastErr = fmt.Errorf("unknown mode %q", strings.Join(args, " "))
			return m, nil
		}
		if err := m.manager.SetFunction(info.ID); err != nil {
			m.lastErr = err
			return m, nil
		}
		m.statusMsg = "Switched to " + info.Name
		return m, nil

	case "/new", "/n":
		m.SaveCurrent()
		m.manager.StartNew()
		m.updateViewport()
		m.statusMsg = "New conversation"
		return m, nil

	case "/clear", "/c":
		m.manager.Conversation().ClearHistory()
		m.manager.MarkDirty()
		m.updateViewport()
		m.statusMsg = "Conversation cleared"
		return m, nil

	case "/quit", "/q", "/exit":
		m.SaveCurrent()
		return m, tea.Quit

	default:
		m.lastErr = fmt.Errorf("unknown command %s (try /help)", command)
		return m, nil
	}
}

// =============================================================================
// VIEWPORT
// =============================================================================

func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}
