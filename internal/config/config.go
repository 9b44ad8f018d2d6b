// Package config loads user-configurable settings from config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Behavior BehaviorConfig `json:"behavior"`
	Search   SearchConfig   `json:"search"`
	Watcher  WatcherConfig  `json:"watcher"`
	Log      LogConfig      `json:"log"`
}

// BehaviorConfig holds navigation behavior settings
type BehaviorConfig struct {
	ShowHidden      bool `json:"showHidden"`
	ConfirmDelete   bool `json:"confirmDelete"`
	RestoreLastPath bool `json:"restoreLastPath"`
}

// SearchConfig holds search settings
type SearchConfig struct {
	DefaultDepth int `json:"defaultDepth"`
}

// WatcherConfig holds filesystem watcher settings
type WatcherConfig struct {
	DebounceMs int `json:"debounceMs"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `json:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `json:"format"` // "console" | "json"
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
		path:   ConfigPath(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Behavior: BehaviorConfig{
			ShowHidden:      false,
			ConfirmDelete:   true,
			RestoreLastPath: true,
		},
		Search: SearchConfig{
			DefaultDepth: 2,
		},
		Watcher: WatcherConfig{
			DebounceMs: 200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ConfigPath returns the config file path: ~/.config/prowl/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "prowl", "config.json")
}

// Load reads the configuration from path. An empty path means the
// default location. A missing file creates it with defaults; a parse
// failure stores the error and keeps defaults.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if path != "" {
		m.path = path
	}
	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.config = DefaultConfig()
		return m.saveUnlocked()
	}
	if err != nil {
		return err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		// Keep running on defaults, surface the error via ParseError
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	m.config = &cfg
	return nil
}

// saveUnlocked writes the current config to disk (caller holds the lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}
