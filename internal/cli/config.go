// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command for the gamesage CLI.
//
// Command: config
// Short:   Show or change configuration
//
// Subcommands:
//   show              Print the active configuration (default)
//   get <key>         Print one value (dotted key, e.g. backend.base_url)
//   set <key> <val>   Set a value and save the config file
//   keys              List settable keys
//   path              Print the config file path
//   reset             Restore defaults
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gamesage/gamesage-tui/internal/config"
)

// HandleConfig handles the "config" command and exits with an appropriate code.
func HandleConfig(args Args) {
	if err := runConfigCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		os.Exit(GetExitCode(err))
	}
}

func runConfigCommand(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		if args.JSON {
			return outputJSON(config.Global())
		}
		printConfigSummary(config.Global())
		return nil

	case "get":
		key := parser.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "gamesage config get backend.base_url")
		}
		val, err := config.Global().Get(key)
		if err != nil {
			return err
		}
		fmt.Printf("%v\n", val)
		return nil

	case "set":
		key := parser.Positional(1)
		if key == "" || parser.PositionalCount() < 3 {
			return ErrMissingArgument("key and value",
				"gamesage config set pacing.disabled true")
		}
		value := strings.Join(parser.PositionalFrom(2), " ")
		if err := setConfigValue(key, value); err != nil {
			return err
		}
		fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, value)
		return nil

	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Println(k)
		}
		return nil

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "reset":
		cfg := config.Default()
		if err := config.Save(cfg); err != nil {
			return err
		}
		config.SetGlobal(cfg)
		fmt.Printf("%s Configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
		return nil

	default:
		return NewValidationErrorWithExample("subcommand", parser.Subcommand(),
			"unknown config subcommand",
			"gamesage config show | get | set | keys | path | reset")
	}
}

// setConfigValue sets a dotted key on the global config, validates the
// result, and saves it.
func setConfigValue(key, value string) error {
	cfg := config.Global()
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return config.Save(cfg)
}

// printConfigSummary prints the active configuration grouped by section.
func printConfigSummary(cfg *config.Config) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("Configuration"))
	fmt.Println(RenderSeparator(20))

	fmt.Println()
	fmt.Println(HighlightStyle.Render("[backend]"))
	fmt.Printf("  base_url      = %s\n", cfg.Backend.BaseURL)
	fmt.Printf("  timeout_ms    = %d\n", cfg.Backend.TimeoutMs)
	fmt.Printf("  max_retries   = %d\n", cfg.Backend.MaxRetries)
	fmt.Printf("  retry_base_ms = %d\n", cfg.Backend.RetryBaseMs)
	fmt.Printf("  rate_per_sec  = %g\n", cfg.Backend.RatePerSec)
	fmt.Printf("  user_id       = %s\n", cfg.Backend.UserID)

	fmt.Println()
	fmt.Println(HighlightStyle.Render("[pacing]"))
	fmt.Printf("  char_delay    = %d-%dms\n", cfg.Pacing.CharDelayMinMs, cfg.Pacing.CharDelayMaxMs)
	fmt.Printf("  batch_delay   = %dms\n", cfg.Pacing.BatchDelayMs)
	fmt.Printf("  batch_size    = %d\n", cfg.Pacing.BatchSize)
	fmt.Printf("  disabled      = %t\n", cfg.Pacing.Disabled)

	fmt.Println()
	fmt.Println(HighlightStyle.Render("[ui]"))
	fmt.Printf("  theme         = %s\n", cfg.UI.Theme)
	fmt.Printf("  markdown      = %t\n", cfg.UI.Markdown)
	fmt.Printf("  compact_mode  = %t\n", cfg.UI.CompactMode)

	fmt.Println()
	fmt.Println(HighlightStyle.Render("[storage]"))
	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		if resolved, err := cfg.DBPath(); err == nil {
			dbPath = resolved
		}
	}
	fmt.Printf("  db_path       = %s\n", dbPath)
	fmt.Printf("  save_chats    = %t\n", cfg.Storage.SaveChats)
	fmt.Printf("  history_window = %d\n", cfg.Storage.HistoryWindow)
	fmt.Println()
}
