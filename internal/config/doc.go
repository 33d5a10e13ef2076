// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// gamesage.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Server connection and retry behavior
//   - PacingConfig: Typed-output pacing for streamed replies
//   - StorageConfig: Local SQLite persistence
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GAMESAGE_*)
//   - ~/.gamesage/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Bridge into the backend client:
//
//	client := backend.NewClient(cfg.BackendConfig())
//
// A Watcher can keep the global config current while the program runs:
//
//	w, _ := config.NewWatcher(path, 200*time.Millisecond, onReload)
//	w.Watch()
//	defer w.Close()
package config
