// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() properly initializes
// the config on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.Backend.BaseURL == "" {
		t.Error("Backend base URL should not be empty")
	}
}

// TestConfig_Default tests that Default() returns a valid config.
func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("unexpected default base URL %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Backend.MaxRetries)
	}
	if cfg.Pacing.CharDelayMinMs != 20 || cfg.Pacing.CharDelayMaxMs != 40 {
		t.Errorf("unexpected default char delays %d-%d", cfg.Pacing.CharDelayMinMs, cfg.Pacing.CharDelayMaxMs)
	}
	if cfg.Pacing.BatchSize != 3 {
		t.Errorf("expected batch size 3, got %d", cfg.Pacing.BatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	modify := func(fn func(*Config)) *Config {
		c := Default()
		fn(c)
		return c
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"valid default config", Default(), false},
		{"empty base URL", modify(func(c *Config) { c.Backend.BaseURL = "" }), true},
		{"malformed base URL", modify(func(c *Config) { c.Backend.BaseURL = "not a url" }), true},
		{"zero timeout", modify(func(c *Config) { c.Backend.TimeoutMs = 0 }), true},
		{"retries above ceiling", modify(func(c *Config) { c.Backend.MaxRetries = 11 }), true},
		{"negative retry base", modify(func(c *Config) { c.Backend.RetryBaseMs = -1 }), true},
		{"zero rate limit", modify(func(c *Config) { c.Backend.RatePerSec = 0 }), true},
		{"char delay max below min", modify(func(c *Config) {
			c.Pacing.CharDelayMinMs = 40
			c.Pacing.CharDelayMaxMs = 20
		}), true},
		{"zero batch size", modify(func(c *Config) { c.Pacing.BatchSize = 0 }), true},
		{"invalid theme", modify(func(c *Config) { c.UI.Theme = "solarized" }), true},
		{"history window too large", modify(func(c *Config) { c.Storage.HistoryWindow = 500 }), true},
		{"zero delays allowed", modify(func(c *Config) {
			c.Pacing.CharDelayMinMs = 0
			c.Pacing.CharDelayMaxMs = 0
			c.Pacing.BatchDelayMs = 0
		}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestConfig_SaveLoadRoundTrip tests the TOML save/load cycle.
func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.BaseURL = "http://gamesage.example:9000"
	cfg.Backend.MaxRetries = 5
	cfg.Pacing.Disabled = true
	cfg.UI.Theme = "light"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Backend.BaseURL != cfg.Backend.BaseURL {
		t.Errorf("base URL = %q, want %q", loaded.Backend.BaseURL, cfg.Backend.BaseURL)
	}
	if loaded.Backend.MaxRetries != 5 {
		t.Errorf("max retries = %d, want 5", loaded.Backend.MaxRetries)
	}
	if !loaded.Pacing.Disabled {
		t.Error("pacing disabled flag lost in round trip")
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme = %q, want light", loaded.UI.Theme)
	}

	// SECURITY: config file must be owner-only
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}
}

// TestConfig_EnvOverrides tests GAMESAGE_* environment variable precedence.
func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GAMESAGE_URL", "http://override.example:1234")
	t.Setenv("GAMESAGE_USER", "alice")
	t.Setenv("GAMESAGE_TIMEOUT_MS", "5000")
	t.Setenv("GAMESAGE_NO_PACING", "true")
	t.Setenv("GAMESAGE_THEME", "auto")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://override.example:1234" {
		t.Errorf("base URL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.UserID != "alice" {
		t.Errorf("user id = %q", cfg.Backend.UserID)
	}
	if cfg.Backend.TimeoutMs != 5000 {
		t.Errorf("timeout = %d", cfg.Backend.TimeoutMs)
	}
	if !cfg.Pacing.Disabled {
		t.Error("GAMESAGE_NO_PACING should disable pacing")
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
}

// TestConfig_EnvOverrideIgnoresGarbage tests that malformed numeric env
// values are ignored rather than zeroing the setting.
func TestConfig_EnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("GAMESAGE_TIMEOUT_MS", "soon")
	t.Setenv("GAMESAGE_MAX_RETRIES", "-2")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.TimeoutMs != 30000 {
		t.Errorf("timeout = %d, want default 30000", cfg.Backend.TimeoutMs)
	}
	if cfg.Backend.MaxRetries != 3 {
		t.Errorf("retries = %d, want default 3", cfg.Backend.MaxRetries)
	}
}

// TestConfig_GetSet tests Get and Set methods with dot notation.
func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	val, err := cfg.Get("backend.base_url")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "http://localhost:8000" {
		t.Errorf("Get('backend.base_url') = %v", val)
	}

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, _ = cfg.Get("ui.theme")
	if val != "light" {
		t.Errorf("Get('ui.theme') after Set = %v, want 'light'", val)
	}

	// String values parse into the target kind.
	if err := cfg.Set("backend.max_retries", "7"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, _ = cfg.Get("backend.max_retries")
	if val != 7 {
		t.Errorf("Get('backend.max_retries') = %v, want 7", val)
	}

	if _, err := cfg.Get("invalid.key"); err == nil {
		t.Error("Get() with invalid key should return error")
	}
}

// TestConfig_BackendConfigBridge tests the conversion into the backend
// client's config.
func TestConfig_BackendConfigBridge(t *testing.T) {
	cfg := Default()
	cfg.Backend.TimeoutMs = 1500
	cfg.Backend.RetryBaseMs = 250
	cfg.Pacing.Disabled = true

	bc := cfg.BackendConfig()
	if bc.Timeout != 1500*time.Millisecond {
		t.Errorf("timeout = %v", bc.Timeout)
	}
	if bc.RetryBaseDelay != 250*time.Millisecond {
		t.Errorf("retry base = %v", bc.RetryBaseDelay)
	}
	if !bc.Pacing.Disabled {
		t.Error("pacing disabled flag not bridged")
	}
	if bc.Pacing.BatchSize != 3 {
		t.Errorf("batch size = %d", bc.Pacing.BatchSize)
	}
}

// TestWatcher_ReloadsOnChange tests that editing the config file triggers a
// reload through the watcher.
func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	cfg.UI.Theme = "light"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q, want light", c.UI.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload within 5s")
	}
}

// TestWatcher_InvalidEditKeepsPrevious tests that a broken config file does
// not clobber the active configuration.
func TestWatcher_InvalidEditKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}
	SetGlobal(cfg)

	called := make(chan struct{}, 1)
	w, err := NewWatcher(path, 50*time.Millisecond, func(*Config) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("max_retries = }{ not toml"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
		t.Fatal("onChange fired for an unparseable config")
	case <-time.After(500 * time.Millisecond):
	}
	if Global().Backend.MaxRetries != 3 {
		t.Error("invalid edit replaced the active config")
	}
}
