package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:       "~/.config/notifylog",
			SQLiteFile: "notifylog.db",
			PrefsFile:  "prefs.yaml",
		},
		Capture: CaptureConfig{
			SelfPackage:    "app.notifylog",
			DedupeEnabled:  true,
			DedupeWindowMS: 3000,
			QueueSize:      256,
		},
		Paging: PagingConfig{
			PageSize:         50,
			PrefetchDistance: 15,
			SearchDebounceMS: 300,
		},
		Retention: RetentionConfig{
			Schedule: "@daily",
		},
		Apps: AppsConfig{
			Labels:         map[string]string{},
			SystemPackages: []string{},
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			File:    "",
		},
	}
}
