// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command for the gamesage CLI.
//
// Command: status
// Short:   Show client configuration and local database state
package cli

import (
	"fmt"
	"os"

	"github.com/gamesage/gamesage-tui/internal/config"
)

// statusInfo is the JSON shape of the status command output.
type statusInfo struct {
	Version    string `json:"version"`
	ConfigPath string `json:"config_path"`
	BackendURL string `json:"backend_url"`
	UserID     string `json:"user_id"`
	DBPath     string `json:"db_path"`
	ChatCount  int    `json:"chat_count"`
	GameCount  int    `json:"game_count"`
	DBError    string `json:"db_error,omitempty"`
}

// HandleStatus handles the "status" command and exits with an appropriate code.
func HandleStatus(args Args) {
	if err := runStatusCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runStatusCommand(args Args) error {
	cfg := config.Global()

	info := statusInfo{
		Version:    Version,
		BackendURL: cfg.Backend.BaseURL,
		UserID:     cfg.Backend.UserID,
	}
	if args.URL != "" {
		info.BackendURL = args.URL
	}
	if path, err := config.ConfigPath(); err == nil {
		info.ConfigPath = path
	}
	if path, err := cfg.DBPath(); err == nil {
		info.DBPath = path
	}

	store, err := openStore()
	if err != nil {
		info.DBError = err.Error()
	} else {
		defer store.Close()
		if metas, err := store.ListChats(); err == nil {
			info.ChatCount = len(metas)
		}
		if n, err := store.CountGames(); err == nil {
			info.GameCount = n
		}
	}

	if args.JSON {
		return outputJSON(info)
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("GameSage Status"))
	fmt.Println(RenderSeparator(20))
	fmt.Println()
	fmt.Printf("  %s %s\n", InfoStyle.Render("Version:"), info.Version)
	fmt.Printf("  %s %s\n", InfoStyle.Render("Config:"), info.ConfigPath)
	fmt.Printf("  %s %s\n", InfoStyle.Render("Backend:"), info.BackendURL)
	fmt.Printf("  %s %s\n", InfoStyle.Render("User:"), info.UserID)
	fmt.Println()
	if info.DBError != "" {
		fmt.Printf("  %s %s\n", InfoStyle.Render("Database:"),
			ErrorStyle.Render(info.DBError))
	} else {
		fmt.Printf("  %s %s\n", InfoStyle.Render("Database:"), info.DBPath)
		fmt.Printf("  %s %d saved, %d games in collection\n",
			InfoStyle.Render("Chats:"), info.ChatCount, info.GameCount)
	}
	fmt.Println()
	return nil
}
