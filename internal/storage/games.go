// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/util"
)

// =============================================================================
// GAME COLLECTION
// =============================================================================

// UpsertGame inserts a game or updates the existing entry with the same name
// (names are unique, case-insensitive).
func (s *Store) UpsertGame(game backend.Game) error {
	name := strings.TrimSpace(game.Name)
	if name == "" {
		return fmt.Errorf("game name is required")
	}

	_, err := s.db.Exec(`
		INSERT INTO games (name, genres, platform, rating, play_status, notes, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			genres = excluded.genres,
			platform = excluded.platform,
			rating = excluded.rating,
			play_status = excluded.play_status,
			notes = excluded.notes
	`, name, strings.Join(game.Genres, ","), game.Platform, game.Rating,
		game.PlayStatus, game.Notes, time.Now().Unix())
	return err
}

// GetGame looks up a single game by name (case-insensitive).
func (s *Store) GetGame(name string) (backend.Game, error) {
	row := s.db.QueryRow(`
		SELECT name, genres, platform, rating, play_status, notes
		FROM games WHERE name = ? COLLATE NOCASE
	`, strings.TrimSpace(name))
	game, err := scanGame(row)
	if err != nil {
		return backend.Game{}, err
	}
	return game, nil
}

// ListGames returns the full collection, alphabetized by name.
func (s *Store) ListGames() ([]backend.Game, error) {
	rows, err := s.db.Query(`
		SELECT name, genres, platform, rating, play_status, notes
		FROM games ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []backend.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

// RemoveGame deletes a game by name (case-insensitive).
func (s *Store) RemoveGame(name string) error {
	res, err := s.db.Exec(`
		DELETE FROM games WHERE name = ? COLLATE NOCASE
	`, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGameNotFound
	}
	return nil
}

// UpdateGameStatus changes only the play status of an existing game.
func (s *Store) UpdateGameStatus(name, status string) error {
	res, err := s.db.Exec(`
		UPDATE games SET play_status = ? WHERE name = ? COLLATE NOCASE
	`, status, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGameNotFound
	}
	return nil
}

// CountGames returns the size of the collection.
func (s *Store) CountGames() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM games").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (backend.Game, error) {
	var game backend.Game
	var genres string
	err := row.Scan(&game.Name, &genres, &game.Platform, &game.Rating,
		&game.PlayStatus, &game.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game, ErrGameNotFound
		}
		return game, err
	}
	if genres != "" {
		game.Genres = strings.Split(genres, ",")
	}
	return game, nil
}

// FormatGameList formats the collection as a table for terminal display.
func FormatGameList(games []backend.Game) string {
	if len(games) == 0 {
		return "No games in collection."
	}

	var sb strings.Builder
	sb.WriteString("Game collection:\n")
	sb.WriteString("------------------------------------------------------------\n")
	fmt.Fprintf(&sb, "%-28s %-12s %-6s %-12s %s\n", "Name", "Platform", "Rating", "Status", "Genres")
	sb.WriteString("------------------------------------------------------------\n")

	for _, g := range games {
		rating := "-"
		if g.Rating > 0 {
			rating = fmt.Sprintf("%.1f", g.Rating)
		}
		fmt.Fprintf(&sb, "%-28s %-12s %-6s %-12s %s\n",
			util.TruncateRunes(g.Name, 28),
			util.TruncateRunesNoEllipsis(g.Platform, 12),
			rating,
			util.TruncateRunesNoEllipsis(g.PlayStatus, 12),
			util.TruncateRunes(strings.Join(g.Genres, ", "), 24))
	}
	return sb.String()
}
