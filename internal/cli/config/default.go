package config

import (
	"os"
	"path/filepath"
)

// Default configuration values.
const (
	DefaultServer    = "http://localhost:8000"
	DefaultAPIPrefix = "/api"
	DefaultOutput    = "table"
	DefaultTimeout   = "30s"

	DefaultStateEngine = "badger"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// Dir returns the per-user directory holding the config, state and history.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".cepip")
}

// DefaultConfigPath returns ~/.cepip/cli.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "cli.yaml")
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	dir := Dir()
	return &CLIConfig{
		Server:    DefaultServer,
		APIPrefix: DefaultAPIPrefix,
		Output:    DefaultOutput,
		Timeout:   DefaultTimeout,
		State: StateSection{
			Engine:  DefaultStateEngine,
			Dir:     filepath.Join(dir, "state"),
			Encrypt: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		HistoryFile: filepath.Join(dir, "history"),
	}
}
