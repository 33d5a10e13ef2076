// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// gamesage.
//
// Configuration is TOML, with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.gamesage/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gamesage/gamesage-tui/internal/backend"
	"github.com/gamesage/gamesage-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete gamesage configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend connection and retry behavior
	Backend BackendConfig `toml:"backend"`

	// Typed-output pacing for streamed replies
	Pacing PacingConfig `toml:"pacing"`

	// Terminal UI configuration
	UI UIConfig `toml:"ui"`

	// Local persistence configuration
	Storage StorageConfig `toml:"storage"`
}

// BackendConfig contains GameSage server connection configuration.
type BackendConfig struct {
	// BaseURL is the server base URL
	BaseURL string `toml:"base_url"`
	// TimeoutMs is the per-attempt request timeout in milliseconds
	TimeoutMs int `toml:"timeout_ms"`
	// MaxRetries is the total attempt ceiling per call
	MaxRetries int `toml:"max_retries"`
	// RetryBaseMs is the linear backoff base in milliseconds
	RetryBaseMs int `toml:"retry_base_ms"`
	// RatePerSec caps outbound requests per second
	RatePerSec float64 `toml:"rate_per_sec"`
	// UserID identifies the user to the server when not logged in
	UserID string `toml:"user_id"`
}

// PacingConfig controls the typed-output simulation for streamed replies.
type PacingConfig struct {
	// CharDelayMinMs/CharDelayMaxMs bound the random per-character delay
	CharDelayMinMs int `toml:"char_delay_min_ms"`
	CharDelayMaxMs int `toml:"char_delay_max_ms"`
	// BatchDelayMs is the pause between fragment batches
	BatchDelayMs int `toml:"batch_delay_ms"`
	// BatchSize is how many fragments are concatenated per batch
	BatchSize int `toml:"batch_size"`
	// Disabled turns the typing simulation off entirely
	Disabled bool `toml:"disabled"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// Markdown renders finished replies through the markdown renderer
	Markdown bool `toml:"markdown"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// StorageConfig contains local persistence configuration.
type StorageConfig struct {
	// DBPath is the SQLite database path (empty = ~/.gamesage/gamesage.db)
	DBPath string `toml:"db_path"`
	// SaveChats persists conversations locally
	SaveChats bool `toml:"save_chats"`
	// HistoryWindow is how many recent turns are sent as chat context
	HistoryWindow int `toml:"history_window"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:     "http://localhost:8000",
			TimeoutMs:   30000,
			MaxRetries:  3,
			RetryBaseMs: 1000,
			RatePerSec:  4,
			UserID:      "default",
		},

		Pacing: PacingConfig{
			CharDelayMinMs: 20,
			CharDelayMaxMs: 40,
			BatchDelayMs:   30,
			BatchSize:      3,
			Disabled:       false,
		},

		UI: UIConfig{
			Theme:       "dark",
			Markdown:    true,
			CompactMode: false,
		},

		Storage: StorageConfig{
			DBPath:        "", // resolved against the config dir at open time
			SaveChats:     true,
			HistoryWindow: 10,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gamesage configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gamesage"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DBPath resolves the SQLite database path, defaulting into the config dir.
func (c *Config) DBPath() (string, error) {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gamesage.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
// SECURITY: Config files are written 0600 (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# gamesage configuration file")
	fmt.Fprintln(&buf, "# Generated by gamesage - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Backend
	if c.Backend.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Backend.BaseURL),
		})
	}
	if c.Backend.TimeoutMs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_ms",
			Message: "must be positive",
		})
	}
	if c.Backend.MaxRetries < 1 || c.Backend.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_retries",
			Message: fmt.Sprintf("must be 1-10, got %d", c.Backend.MaxRetries),
		})
	}
	if c.Backend.RetryBaseMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.retry_base_ms",
			Message: "must be non-negative",
		})
	}
	if c.Backend.RatePerSec <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.rate_per_sec",
			Message: "must be positive",
		})
	}

	// Pacing
	if c.Pacing.CharDelayMinMs < 0 || c.Pacing.CharDelayMaxMs < 0 || c.Pacing.BatchDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "pacing",
			Message: "delays must be non-negative",
		})
	}
	if c.Pacing.CharDelayMaxMs < c.Pacing.CharDelayMinMs {
		errs = append(errs, ValidationError{
			Field:   "pacing.char_delay_max_ms",
			Message: fmt.Sprintf("must be >= char_delay_min_ms (%d), got %d", c.Pacing.CharDelayMinMs, c.Pacing.CharDelayMaxMs),
		})
	}
	if c.Pacing.BatchSize < 1 || c.Pacing.BatchSize > 64 {
		errs = append(errs, ValidationError{
			Field:   "pacing.batch_size",
			Message: fmt.Sprintf("must be 1-64, got %d", c.Pacing.BatchSize),
		})
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	// Storage
	if c.Storage.HistoryWindow < 0 || c.Storage.HistoryWindow > 100 {
		errs = append(errs, ValidationError{
			Field:   "storage.history_window",
			Message: fmt.Sprintf("must be 0-100, got %d", c.Storage.HistoryWindow),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutMs == 0 {
		c.Backend.TimeoutMs = defaults.Backend.TimeoutMs
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = defaults.Backend.MaxRetries
	}
	if c.Backend.RetryBaseMs == 0 {
		c.Backend.RetryBaseMs = defaults.Backend.RetryBaseMs
	}
	if c.Backend.RatePerSec == 0 {
		c.Backend.RatePerSec = defaults.Backend.RatePerSec
	}
	if c.Backend.UserID == "" {
		c.Backend.UserID = defaults.Backend.UserID
	}

	if c.Pacing.BatchSize == 0 {
		c.Pacing.BatchSize = defaults.Pacing.BatchSize
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}

	if c.Storage.HistoryWindow == 0 {
		c.Storage.HistoryWindow = defaults.Storage.HistoryWindow
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GAMESAGE_URL: overrides backend.base_url
//   - GAMESAGE_USER: overrides backend.user_id
//   - GAMESAGE_TIMEOUT_MS: overrides backend.timeout_ms
//   - GAMESAGE_MAX_RETRIES: overrides backend.max_retries
//   - GAMESAGE_NO_PACING: set to "1" or "true" to disable typed output
//   - GAMESAGE_DB: overrides storage.db_path
//   - GAMESAGE_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("GAMESAGE_URL"); u != "" {
		c.Backend.BaseURL = u
	}
	if user := os.Getenv("GAMESAGE_USER"); user != "" {
		c.Backend.UserID = user
	}
	if ms := os.Getenv("GAMESAGE_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			c.Backend.TimeoutMs = v
		}
	}
	if retries := os.Getenv("GAMESAGE_MAX_RETRIES"); retries != "" {
		if v, err := strconv.Atoi(retries); err == nil && v > 0 {
			c.Backend.MaxRetries = v
		}
	}
	if noPacing := os.Getenv("GAMESAGE_NO_PACING"); noPacing != "" {
		c.Pacing.Disabled = noPacing == "1" || strings.ToLower(noPacing) == "true"
	}
	if db := os.Getenv("GAMESAGE_DB"); db != "" {
		c.Storage.DBPath = db
	}
	if theme := os.Getenv("GAMESAGE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// BACKEND CLIENT BRIDGING
// =============================================================================

// BackendConfig converts the file-level settings into the client config
// consumed by the backend package.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		BaseURL:        c.Backend.BaseURL,
		Timeout:        time.Duration(c.Backend.TimeoutMs) * time.Millisecond,
		MaxRetries:     c.Backend.MaxRetries,
		RetryBaseDelay: time.Duration(c.Backend.RetryBaseMs) * time.Millisecond,
		RatePerSec:     c.Backend.RatePerSec,
		Pacing: backend.PacingConfig{
			CharDelayMin: time.Duration(c.Pacing.CharDelayMinMs) * time.Millisecond,
			CharDelayMax: time.Duration(c.Pacing.CharDelayMaxMs) * time.Millisecond,
			BatchDelay:   time.Duration(c.Pacing.BatchDelayMs) * time.Millisecond,
			BatchSize:    c.Pacing.BatchSize,
			Disabled:     c.Pacing.Disabled,
		},
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g.,
// "backend.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion. String inputs are parsed into the target kind so values from
// the command line work directly.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.timeout_ms",
		"backend.max_retries",
		"backend.retry_base_ms",
		"backend.rate_per_sec",
		"backend.user_id",
		"pacing.char_delay_min_ms",
		"pacing.char_delay_max_ms",
		"pacing.batch_delay_ms",
		"pacing.batch_size",
		"pacing.disabled",
		"ui.theme",
		"ui.markdown",
		"ui.compact_mode",
		"storage.db_path",
		"storage.save_chats",
		"storage.history_window",
	}
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
