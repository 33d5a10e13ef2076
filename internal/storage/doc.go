// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists gamesage state in a local SQLite database:
// saved chats with their messages, and the user's game collection.
//
// # Key Types
//
//   - Store: database handle with chat and game operations
//   - NotFoundError: typed error for missing chats or games
//
// # Usage
//
// Open a store and save a chat:
//
//	store, err := storage.Open(cfg.Storage.DBPath)
//	err = store.SaveChat(conversation)
//
// List and load chats:
//
//	metas, err := store.ListChats()
//	conv, err := store.LoadChat(metas[0].ID)
//
// Manage the game collection:
//
//	err = store.UpsertGame(backend.Game{Name: "Hades", PlayStatus: "playing"})
//	games, err := store.ListGames()
//
// The database uses WAL journaling and enforces foreign keys; deleting a
// chat cascades to its messages.
package storage
