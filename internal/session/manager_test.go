// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"testing"
	"time"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/model"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Function != backend.FunctionGeneral {
		t.Errorf("Default Function = %q, want general", cfg.Function)
	}
	if cfg.HistoryWindow != 10 {
		t.Errorf("Default HistoryWindow = %d, want 10", cfg.HistoryWindow)
	}
	if !cfg.AutoSaveEnabled {
		t.Error("Default AutoSaveEnabled should be true")
	}
	if cfg.AutoSaveInterval != 30*time.Second {
		t.Errorf("Default AutoSaveInterval = %v, want 30s", cfg.AutoSaveInterval)
	}
}

// =============================================================================
// MANAGER CREATION TESTS
// =============================================================================

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	if m.Conversation() == nil {
		t.Fatal("Expected a fresh conversation")
	}
	if m.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if m.Function() != backend.FunctionGeneral {
		t.Errorf("Function = %q, want general", m.Function())
	}
	if m.IsDirty() {
		t.Error("New session should be clean")
	}
}

func TestNewManager_InvalidFunctionFallsBack(t *testing.T) {
	m := NewManager(Config{Function: backend.Function("bogus")})

	if m.Function() != backend.FunctionGeneral {
		t.Errorf("Function = %q, want general fallback", m.Function())
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE TESTS
// =============================================================================

func TestManager_StartNewKeepsFunction(t *testing.T) {
	m := NewManager(DefaultConfig())
	if err := m.SetFunction(backend.FunctionPlay); err != nil {
		t.Fatalf("SetFunction failed: %v", err)
	}
	m.Conversation().AddUserMessage("hello")
	oldID := m.SessionID()

	prev := m.StartNew()

	if prev.ID != oldID {
		t.Error("StartNew should return the previous conversation")
	}
	if m.SessionID() == oldID {
		t.Error("StartNew should create a new conversation")
	}
	if m.Function() != backend.FunctionPlay {
		t.Errorf("Function = %q, want play preserved", m.Function())
	}
	if m.IsDirty() {
		t.Error("New conversation should be clean")
	}
}

func TestManager_Resume(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.MarkDirty()

	saved := model.NewConversationWithFunction(backend.FunctionGameWiki)
	saved.AddUserMessage("resumed")
	m.Resume(saved)

	if m.SessionID() != saved.ID {
		t.Error("Resume should swap in the saved conversation")
	}
	if m.Function() != backend.FunctionGameWiki {
		t.Errorf("Function = %q, want game_wiki", m.Function())
	}
	if m.IsDirty() {
		t.Error("Resumed session should start clean")
	}
}

func TestManager_SetFunctionRejectsUnknown(t *testing.T) {
	m := NewManager(DefaultConfig())

	if err := m.SetFunction(backend.Function("nope")); err == nil {
		t.Error("Expected error for unknown function")
	}
	if m.Function() != backend.FunctionGeneral {
		t.Errorf("Function changed to %q on failed set", m.Function())
	}
}

func TestManager_HistoryRespectsWindow(t *testing.T) {
	m := NewManager(Config{HistoryWindow: 2, AutoSaveInterval: time.Minute})

	conv := m.Conversation()
	for i := 0; i < 5; i++ {
		conv.AddUserMessage("question")
		conv.AddAssistantMessage()
		conv.AppendToLast("answer")
		conv.FinalizeLast(nil)
	}

	history := m.History()
	if len(history) != 2 {
		t.Errorf("History = %d turns, want 2", len(history))
	}
}

// =============================================================================
// DIRTY TRACKING AND AUTO-SAVE TESTS
// =============================================================================

func TestManager_DirtyTracking(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.MarkDirty()
	if !m.IsDirty() {
		t.Error("Expected dirty after MarkDirty")
	}
	m.MarkClean()
	if m.IsDirty() {
		t.Error("Expected clean after MarkClean")
	}
}

func TestManager_ShouldAutoSave(t *testing.T) {
	m := NewManager(Config{
		AutoSaveEnabled:  true,
		AutoSaveInterval: time.Millisecond,
	})

	if m.ShouldAutoSave() {
		t.Error("Clean session should not auto-save")
	}

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	if !m.ShouldAutoSave() {
		t.Error("Dirty session past interval should auto-save")
	}
}

func TestManager_AutoSaveDisabled(t *testing.T) {
	m := NewManager(Config{
		AutoSaveEnabled:  false,
		AutoSaveInterval: time.Millisecond,
	})

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	if m.ShouldAutoSave() {
		t.Error("Disabled auto-save should never trigger")
	}
}

func TestManager_CheckRunsCallbackAndMarksClean(t *testing.T) {
	m := NewManager(Config{
		AutoSaveEnabled:  true,
		AutoSaveInterval: time.Millisecond,
	})

	var saved *model.Conversation
	m.SetAutoSaveCallback(func(conv *model.Conversation) error {
		saved = conv
		return nil
	})

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	m.Check()

	if saved == nil {
		t.Fatal("Auto-save callback not invoked")
	}
	if saved.ID != m.SessionID() {
		t.Error("Callback received wrong conversation")
	}
	if m.IsDirty() {
		t.Error("Session should be clean after successful auto-save")
	}
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordActivity()
			m.MarkDirty()
			_ = m.GetStatus()
			_ = m.History()
			m.MarkClean()
		}()
	}
	wg.Wait()
}

// =============================================================================
// STATUS TESTS
// =============================================================================

func TestManager_GetStatus(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Conversation().AddUserMessage("hi")
	m.MarkDirty()

	status := m.GetStatus()

	if status.SessionID != m.SessionID() {
		t.Error("Status SessionID mismatch")
	}
	if status.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", status.MessageCount)
	}
	if !status.IsDirty {
		t.Error("Status should report dirty")
	}
	if status.Function != backend.FunctionGeneral {
		t.Errorf("Function = %q, want general", status.Function)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{2 * time.Minute, "2m"},
		{2*time.Minute + 15*time.Second, "2m 15s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
