// gamesage - A terminal chat client for the GameSage backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gamesage/gamesage-tui/internal/cli"
	"github.com/gamesage/gamesage-tui/internal/config"
	"github.com/gamesage/gamesage-tui/internal/session"
	"github.com/gamesage/gamesage-tui/internal/storage"
	"github.com/gamesage/gamesage-tui/internal/ui/chat"
	"github.com/gamesage/gamesage-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// Load config before anything else; handlers read the global.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	// Hot-reload the config file while running. Best effort: a watch
	// failure never blocks startup.
	if path, perr := config.ConfigPath(); perr == nil {
		if watcher, werr := config.NewWatcher(path, 250*time.Millisecond, func(next *config.Config) {
			config.SetGlobal(next)
		}); werr == nil {
			if werr := watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdChats:
		cli.HandleChats(args)
	case cli.CmdGames:
		cli.HandleGames(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdUpload:
		cli.HandleUpload(args)
	case cli.CmdMemory:
		cli.HandleMemory(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdRegister:
		cli.HandleRegister(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleHelp()
		os.Exit(2)
	}
}

// runTUI starts the full-screen chat interface.
func runTUI(args cli.Args) {
	if err := cli.RequiresTTY("tui"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Try: gamesage ask \"your question\"")
		os.Exit(2)
	}

	cfg := config.Global()
	styles.ApplyColorScheme(cfg.UI.Theme)

	fn, err := cli.ResolveFunction(args.Function)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	mgr := session.NewManager(session.Config{
		Function:         fn,
		HistoryWindow:    cfg.Storage.HistoryWindow,
		AutoSaveEnabled:  cfg.Storage.SaveChats,
		AutoSaveInterval: 30 * time.Second,
	})

	var store *storage.Store
	if path, perr := cfg.DBPath(); perr == nil {
		if s, serr := storage.Open(path); serr == nil {
			store = s
			defer store.Close()
		} else {
			fmt.Fprintf(os.Stderr, "Warning: chat persistence unavailable: %v\n", serr)
		}
	}

	model := chat.New(styles.NewTheme(), mgr, cli.NewBackendClient(args), store)

	program := tea.NewProgram(model, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Persist whatever the session ended with.
	if m, ok := final.(chat.Model); ok {
		m.SaveCurrent()
	}
}
