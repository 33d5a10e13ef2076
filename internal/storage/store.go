// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// STORE
// =============================================================================

// Store is the local gamesage database: saved chats and the game collection.
type Store struct {
	db *sql.DB

	// MaxChats limits stored conversations (0 = unlimited). Oldest chats
	// are evicted when the limit is exceeded.
	MaxChats int
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PERFORMANCE: WAL keeps readers unblocked during saves; the database
	// is single-user so NORMAL sync is a safe trade.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init metadata: %w", err)
	}

	return &Store{db: db, MaxChats: 100}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// ERRORS
// =============================================================================

// NotFoundError reports a missing row. Use errors.Is with the package
// sentinels to check.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string {
	return e.Kind + " not found"
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && e.Kind == t.Kind
}

// ErrChatNotFound is returned when a chat doesn't exist.
var ErrChatNotFound = &NotFoundError{Kind: "chat"}

// ErrGameNotFound is returned when a game doesn't exist in the collection.
var ErrGameNotFound = &NotFoundError{Kind: "game"}
