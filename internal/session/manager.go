// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the active chat session: the current conversation,
// the selected assistant mode, and auto-save bookkeeping.
package session

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/model"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager owns the live conversation and its session state. All methods are
// safe for concurrent use; the UI and the auto-save tick share it.
type Manager struct {
	mu sync.Mutex

	conversation *model.Conversation

	startTime    time.Time
	lastActivity time.Time

	historyWindow int

	// Auto-save
	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	isDirty          bool

	onAutoSave func(*model.Conversation) error
}

// Config holds configuration for the session manager.
type Config struct {
	// Function is the initial assistant mode.
	Function backend.Function

	// HistoryWindow is how many prior turns accompany each request
	// (0 = full history).
	HistoryWindow int

	// AutoSaveEnabled enables periodic persistence of dirty sessions.
	AutoSaveEnabled bool

	// AutoSaveInterval is how often to auto-save (default: 30 seconds).
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Function:         backend.FunctionGeneral,
		HistoryWindow:    10,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 30 * time.Second,
	}
}

// NewManager creates a session manager with a fresh conversation.
func NewManager(cfg Config) *Manager {
	if cfg.AutoSaveInterval <= 0 {
		cfg.AutoSaveInterval = 30 * time.Second
	}
	fn := cfg.Function
	if !fn.Valid() {
		fn = backend.FunctionGeneral
	}
	now := time.Now()
	return &Manager{
		conversation:     model.NewConversationWithFunction(fn),
		startTime:        now,
		lastActivity:     now,
		historyWindow:    cfg.HistoryWindow,
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
		lastAutoSave:     now,
	}
}

// =============================================================================
// CONVERSATION ACCESS
// =============================================================================

// Conversation returns the active conversation.
func (m *Manager) Conversation() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversation
}

// StartNew begins a fresh conversation, keeping the active assistant mode.
// The previous conversation is returned so the caller can persist it.
func (m *Manager) StartNew() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.conversation
	m.conversation = model.NewConversationWithFunction(prev.Function)
	m.isDirty = false
	m.lastActivity = time.Now()
	return prev
}

// Resume swaps in a previously saved conversation.
func (m *Manager) Resume(conv *model.Conversation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversation = conv
	m.isDirty = false
	m.lastActivity = time.Now()
}

// Function returns the active assistant mode.
func (m *Manager) Function() backend.Function {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversation.Function
}

// SetFunction switches the assistant mode for the active conversation.
func (m *Manager) SetFunction(fn backend.Function) error {
	if !fn.Valid() {
		return fmt.Errorf("unknown function %q", fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversation.Function = fn
	m.isDirty = true
	return nil
}

// History returns the prior turns to send with the next request, bounded by
// the configured window.
func (m *Manager) History() []backend.HistoryTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversation.HistoryWindow(m.historyWindow)
}

// SessionID returns the conversation ID; it doubles as the session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversation.ID
}

// =============================================================================
// ACTIVITY AND DIRTY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp. Called on user input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
}

// MarkDirty indicates the session has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the session has been saved.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastAutoSave = time.Now()
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// =============================================================================
// AUTO-SAVE
// =============================================================================

// SetAutoSaveCallback sets the function called to persist the conversation.
func (m *Manager) SetAutoSaveCallback(fn func(*model.Conversation) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onAutoSave = fn
}

// ShouldAutoSave returns true if auto-save should trigger.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.autoSaveEnabled || !m.isDirty {
		return false
	}
	return time.Since(m.lastAutoSave) >= m.autoSaveInterval
}

// Check runs auto-save if due. The callback executes outside the lock.
func (m *Manager) Check() {
	m.mu.Lock()
	shouldSave := m.autoSaveEnabled && m.isDirty &&
		time.Since(m.lastAutoSave) >= m.autoSaveInterval
	onAutoSave := m.onAutoSave
	conv := m.conversation
	m.mu.Unlock()

	if shouldSave && onAutoSave != nil {
		if err := onAutoSave(conv); err == nil {
			m.MarkClean()
		}
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// AutoSaveMsg indicates auto-save should occur.
type AutoSaveMsg struct{}

// TickCmd returns a command that ticks periodically.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns appropriate messages.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	if m.ShouldAutoSave() {
		cmds = append(cmds, func() tea.Msg {
			return AutoSaveMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID    string
	Function     backend.Function
	StartTime    time.Time
	Duration     time.Duration
	IdleTime     time.Duration
	MessageCount int
	IsDirty      bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	return Status{
		SessionID:    m.conversation.ID,
		Function:     m.conversation.Function,
		StartTime:    m.startTime,
		Duration:     now.Sub(m.startTime),
		IdleTime:     now.Sub(m.lastActivity),
		MessageCount: m.conversation.MessageCount(),
		IsDirty:      m.isDirty,
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}
