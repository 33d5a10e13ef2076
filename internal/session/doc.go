// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the live chat session for gamesage.
//
// A Manager owns the active conversation, the selected assistant mode, and
// the auto-save state shared by the REPL and the TUI. It exposes Bubble Tea
// tick integration so the UI can drive periodic auto-save without its own
// timer.
//
// # Usage
//
//	mgr := session.NewManager(session.Config{
//		Function:      backend.FunctionGeneral,
//		HistoryWindow: cfg.Storage.HistoryWindow,
//	})
//	mgr.SetAutoSaveCallback(store.SaveChat)
//
//	mgr.Conversation().AddUserMessage(input)
//	mgr.MarkDirty()
//	history := mgr.History()
package session
