// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"

	"github.com/gamesage/gamesage-tui/internal/backend"
)

// =============================================================================
// FUNCTION REGISTRY TESTS
// =============================================================================

func TestFunctions_RegistryComplete(t *testing.T) {
	for _, id := range FunctionOrder {
		info, ok := Functions[id]
		if !ok {
			t.Fatalf("ordered mode %q missing from registry", id)
		}
		if info.ID != id {
			t.Errorf("registry entry %q has mismatched ID %q", id, info.ID)
		}
		if info.Name == "" || info.Description == "" {
			t.Errorf("registry entry %q missing display text", id)
		}
		if !info.ID.Valid() {
			t.Errorf("registry entry %q is not a valid wire mode", id)
		}
	}
	if len(Functions) != len(FunctionOrder) {
		t.Errorf("registry has %d entries, order lists %d", len(Functions), len(FunctionOrder))
	}
}

func TestLookupFunction(t *testing.T) {
	tests := []struct {
		input string
		want  backend.Function
		ok    bool
	}{
		{"play", backend.FunctionPlay, true},
		{"PLAY", backend.FunctionPlay, true},
		{"What To Play", backend.FunctionPlay, true},
		{"  general  ", backend.FunctionGeneral, true},
		{"doc_qa", backend.FunctionDocQA, true},
		{"unknown-mode", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		info, ok := LookupFunction(tc.input)
		if ok != tc.ok {
			t.Errorf("LookupFunction(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			continue
		}
		if ok && info.ID != tc.want {
			t.Errorf("LookupFunction(%q) = %q, want %q", tc.input, info.ID, tc.want)
		}
	}
}

func TestFormatFunctionList_MarksActive(t *testing.T) {
	out := FormatFunctionList(backend.FunctionGameGuide)
	if !strings.Contains(out, "* game_guide") {
		t.Errorf("active mode not marked:\n%s", out)
	}
	if strings.Count(out, "*") != 1 {
		t.Errorf("expected exactly one active marker:\n%s", out)
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendDelta("Hel")
	msg.AppendDelta("lo")
	if got := msg.GetDisplayContent(); got != "Hello" {
		t.Errorf("display content = %q, want %q", got, "Hello")
	}
	if msg.Content != "" {
		t.Error("content should stay empty until finalized")
	}

	stats := NewStatistics()
	stats.RecordFirstDelta()
	stats.Finalize(5)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello" {
		t.Errorf("content = %q, want %q", msg.Content, "Hello")
	}
	if msg.TotalDuration == 0 {
		t.Error("finalize should record total duration")
	}

	// Appends after finalize are ignored.
	msg.AppendDelta("!")
	if msg.GetDisplayContent() != "Hello" {
		t.Error("append after finalize should be a no-op")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("first line of a fairly long question\nsecond line")
	preview := msg.Preview(20)
	if strings.Contains(preview, "\n") {
		t.Errorf("preview contains newline: %q", preview)
	}
	if len([]rune(preview)) > 20 {
		t.Errorf("preview too long: %q", preview)
	}
}

func TestMessage_UniqueIDs(t *testing.T) {
	a := NewUserMessage("a")
	b := NewUserMessage("b")
	if a.ID == b.ID {
		t.Error("messages should get unique IDs")
	}
	if a.ID == "" {
		t.Error("message ID should not be empty")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("connected")
	conv.AddUserMessage("What should I play this weekend?")

	if conv.GetTitle() != "What should I play this weekend?" {
		t.Errorf("title = %q", conv.GetTitle())
	}

	// Title sticks once set.
	conv.AddUserMessage("Something else entirely")
	if conv.GetTitle() != "What should I play this weekend?" {
		t.Error("title should not change after first user message")
	}
}

func TestConversation_HistoryWindow(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("connected")
	for i := 0; i < 5; i++ {
		conv.AddUserMessage("question")
		msg := conv.AddAssistantMessage()
		msg.AppendDelta("answer")
		msg.FinalizeStream(nil)
	}

	// Streaming message excluded until finalized.
	conv.AddAssistantMessage()

	turns := conv.HistoryWindow(4)
	if len(turns) != 4 {
		t.Fatalf("window = %d turns, want 4", len(turns))
	}
	for _, turn := range turns {
		if turn.Role != "user" && turn.Role != "assistant" {
			t.Errorf("unexpected role %q in history", turn.Role)
		}
		if turn.Content == "" {
			t.Error("empty content in history turn")
		}
	}

	// Zero window sends every settled turn.
	if got := len(conv.HistoryWindow(0)); got != 10 {
		t.Errorf("full history = %d turns, want 10", got)
	}
}

func TestConversation_DropLastIfEmpty(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()

	conv.DropLastIfEmpty()
	if conv.MessageCount() != 1 {
		t.Errorf("count = %d, want 1", conv.MessageCount())
	}

	// A message with content survives.
	msg := conv.AddAssistantMessage()
	msg.AppendDelta("hi")
	msg.FinalizeStream(nil)
	conv.DropLastIfEmpty()
	if conv.MessageCount() != 2 {
		t.Errorf("count = %d, want 2", conv.MessageCount())
	}
}

func TestConversation_PruneKeepsSystemMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("pinned")
	for i := 0; i < MaxMessages+10; i++ {
		conv.AddUserMessage("filler")
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("count = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message should survive pruning")
	}
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	conv := NewConversationWithFunction(backend.FunctionPlay)
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"
	clone.Function = backend.FunctionGeneral

	if conv.Messages[0].Content != "original" {
		t.Error("clone mutation leaked into original")
	}
	if conv.Function != backend.FunctionPlay {
		t.Error("clone mutation changed original function")
	}
}
