package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/notifylog/config.yaml"

// Config holds all notifylog configuration. Live user preferences (logging
// toggle, system-app filter, retention days) are deliberately NOT here —
// they live in their own hot-reloaded file, see internal/prefs.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Capture   CaptureConfig   `yaml:"capture"`
	Paging    PagingConfig    `yaml:"paging"`
	Retention RetentionConfig `yaml:"retention"`
	Apps      AppsConfig      `yaml:"apps"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
	PrefsFile  string `yaml:"prefs_file"`
}

type CaptureConfig struct {
	// SelfPackage is this application's own package identity; its events
	// are never logged.
	SelfPackage    string `yaml:"self_package"`
	DedupeEnabled  bool   `yaml:"dedupe_enabled"`
	DedupeWindowMS int    `yaml:"dedupe_window_ms"`
	QueueSize      int    `yaml:"queue_size"`
}

type PagingConfig struct {
	PageSize         int `yaml:"page_size"`
	PrefetchDistance int `yaml:"prefetch_distance"`
	SearchDebounceMS int `yaml:"search_debounce_ms"`
}

type RetentionConfig struct {
	// Schedule is a cron spec (robfig/cron); "@daily" by default.
	Schedule string `yaml:"schedule"`
}

type AppsConfig struct {
	// Labels maps package names to human-readable app names.
	Labels map[string]string `yaml:"labels"`
	// SystemPackages lists package prefixes classified as system apps, on
	// top of the built-in defaults.
	SystemPackages []string `yaml:"system_packages"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
	File    string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// DatabasePath resolves the full SQLite database path.
func (c *Config) DatabasePath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// PrefsPath resolves the full preferences file path.
func (c *Config) PrefsPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.PrefsFile), nil
}
