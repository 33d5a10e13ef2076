// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared helper functions used across CLI commands.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/config"
	"github.com/gamesage/gamesage-tui/internal/model"
	"github.com/gamesage/gamesage-tui/internal/storage"
)

// NewBackendClient builds a backend client from the global config plus any
// CLI overrides. Exported for the TUI entrypoint.
func NewBackendClient(args Args) *backend.Client {
	return newBackendClient(args)
}

// ResolveFunction maps a user-supplied mode name to a backend function.
// Exported for the TUI entrypoint.
func ResolveFunction(name string) (backend.Function, error) {
	return resolveFunction(name)
}

// newBackendClient builds a backend client from the global config plus any
// CLI overrides.
func newBackendClient(args Args) *backend.Client {
	cfg := config.Global()
	bc := cfg.BackendConfig()
	if args.URL != "" {
		bc.BaseURL = args.URL
	}
	if args.NoPacing {
		bc.Pacing.Disabled = true
	}
	client := backend.NewClient(bc)
	if cfg.Backend.UserID != "" {
		client.SetAuth("", cfg.Backend.UserID)
	}
	return client
}

// openStore opens the chat/game database from the configured path.
func openStore() (*storage.Store, error) {
	path, err := config.Global().DBPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// resolveFunction maps a user-supplied mode name to a backend function.
// Empty input falls back to the default mode.
func resolveFunction(name string) (backend.Function, error) {
	if strings.TrimSpace(name) == "" {
		return backend.FunctionGeneral, nil
	}
	info, ok := model.LookupFunction(name)
	if !ok {
		return "", NewValidationErrorWithExample("function", name,
			"unknown assistant mode",
			"general, play, game_guide, doc_qa, game_wiki")
	}
	return info.ID, nil
}

// loadCollection returns the saved game collection, or nil when the store is
// unavailable. Chat requests degrade gracefully without a collection.
func loadCollection(store *storage.Store) []backend.Game {
	if store == nil {
		return nil
	}
	games, err := store.ListGames()
	if err != nil {
		return nil
	}
	return games
}

// formatDuration formats a time.Duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

// formatNumber formats an integer with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	result := make([]byte, 0, len(s)+len(s)/3)
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

// outputJSON outputs data as JSON.
func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// promptInput prompts the user for a line of input.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
