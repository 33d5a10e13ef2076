// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view for the gamesage TUI.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/config"
	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/session"
	"github.com/gamesage/gamesage-tui/internal/storage"
	"github.com/gamesage/gamesage-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving a streamed reply
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Domain state
	manager *session.Manager
	client  *backend.Client
	store   *storage.Store // nil when persistence is unavailable

	// Current stream
	streamingMsgID string
	streamingStats *model.Statistics
	cancelToken    *backend.CancelToken
	events         chan streamEvent

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	keyMap KeyMap

	// compact drops the header row to give the transcript more space
	compact bool

	// Transient feedback
	statusMsg string
	lastErr   error

	showHelp bool
}

// New creates a new chat model. store may be nil; chats are then kept only
// in memory for the session.
func New(theme *styles.Theme, mgr *session.Manager, client *backend.Client, store *storage.Store) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your games..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	if store != nil {
		mgr.SetAutoSaveCallback(store.SaveChat)
	}

	return Model{
		state:    StateReady,
		theme:    theme,
		manager:  mgr,
		client:   client,
		store:    store,
		viewport: vp,
		input:    ti,
		spinner:  sp,
		keyMap:   DefaultKeyMap(),
		compact:  config.Global().UI.CompactMode,
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, session.TickCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamDeltaMsg:
		return m.handleStreamDelta(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StatusMsg:
		m.statusMsg = msg.Text
		return m, nil

	case ErrorMsg:
		m.lastErr = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case session.TickMsg:
		return m, tea.Batch(m.manager.HandleTick(), session.TickCmd())

	case session.AutoSaveMsg:
		m.manager.Check()
		return m, nil

	default:
		var cmds []tea.Cmd
		if m.state == StateReady {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}
		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)
		return m, tea.Batch(cmds...)
	}
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + viewport + input area + status bar. Constants are
	// conservative so the viewport never overflows the terminal.
	const (
		headerHeight    = 2
		inputAreaHeight = 3
		statusBarHeight = 2
	)

	viewportHeight := m.height - inputAreaHeight - statusBarHeight
	if !m.compact {
		viewportHeight -= headerHeight
	}
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	viewportWidth := m.width
	if viewportWidth < 1 {
		viewportWidth = 1
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}

	m.updateViewport()

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

func (m Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	m.streamingMsgID = msg.MessageID
	m.streamingStats = model.NewStatistics()
	m.state = StateStreaming
	m.statusMsg = ""
	return m, tea.Batch(m.spinner.Tick, waitForStreamEvent(msg.MessageID, m.events))
}

func (m Model) handleStreamDelta(msg StreamDeltaMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	if m.streamingStats != nil {
		m.streamingStats.RecordFirstDelta()
	}

	m.manager.Conversation().AppendToLast(msg.Delta)
	m.updateViewport()
	m.viewport.GotoBottom()

	return m, waitForStreamEvent(msg.MessageID, m.events)
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamingMsgID {
		return m, nil
	}

	conv := m.manager.Conversation()

	switch {
	case msg.Err != nil:
		conv.DropLastIfEmpty()
		m.lastErr = msg.Err
	case msg.Aborted:
		// Keep whatever was delivered before the abort; a partial reply
		// stays part of the history and of saved chats.
		m.finalizeLast(conv)
		conv.DropLastIfEmpty()
		m.statusMsg = "Cancelled"
		m.manager.MarkDirty()
	default:
		m.finalizeLast(conv)
		m.manager.MarkDirty()
	}

	m.state = StateReady
	m.streamingMsgID = ""
	m.streamingStats = nil
	m.cancelToken = nil
	m.events = nil

	m.updateViewport()
	m.viewport.GotoBottom()
	m.input.Focus()

	return m, textinput.Blink
}

// finalizeLast settles the in-flight assistant message with the collected
// statistics.
func (m *Model) finalizeLast(conv *model.Conversation) {
	if m.streamingStats != nil {
		last := conv.GetLastMessage()
		chars := 0
		if last != nil {
			chars = len([]rune(last.GetDisplayContent()))
		}
		m.streamingStats.Finalize(chars)
	}
	conv.FinalizeLast(m.streamingStats)
}

// startStream kicks off a backend stream for the given user input. The
// goroutine feeds paced deltas into the event channel; the update loop
// drains it via waitForStreamEvent.
func (m *Model) startStream(input string) tea.Cmd {
	m.manager.RecordActivity()
	conv := m.manager.Conversation()

	fn := m.manager.Function()
	req := backend.ChatRequest{
		Message:     input,
		Function:    fn,
		ChatHistory: m.manager.History(),
	}
	if fn == backend.FunctionPlay && m.store != nil {
		if games, err := m.store.ListGames(); err == nil {
			req.GameCollection = games
		}
	}

	conv.AddUserMessage(input)
	msg := conv.AddAssistantMessage()

	token := backend.NewCancelToken()
	events := make(chan streamEvent, 64)
	m.cancelToken = token
	m.events = events

	client := m.client
	go func() {
		err := client.ChatStream(context.Background(), req, func(delta string) {
			events <- streamEvent{delta: delta}
		}, token)
		events <- streamEvent{done: true, aborted: token.Aborted(), err: err}
		close(events)
	}()

	messageID := msg.ID
	return func() tea.Msg {
		return StreamStartMsg{MessageID: messageID}
	}
}

// cancelStream aborts the in-flight stream, if any.
func (m *Model) cancelStream() {
	if m.cancelToken != nil {
		m.cancelToken.Abort()
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Conversation returns the active conversation.
func (m *Model) Conversation() *model.Conversation {
	return m.manager.Conversation()
}

// GetState returns the current view state.
func (m *Model) GetState() State {
	return m.state
}

// SaveCurrent persists the active conversation when a store is attached.
func (m *Model) SaveCurrent() {
	if m.store == nil {
		return
	}
	conv := m.manager.Conversation()
	if conv.IsEmpty() {
		return
	}
	if err := m.store.SaveChat(conv); err == nil {
		m.manager.MarkClean()
	}
}
