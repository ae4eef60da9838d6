package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/cepip-console/internal/cli/output"
	"github.com/yndnr/cepip-console/internal/infra/confloader"
	"github.com/yndnr/cepip-console/internal/storage"
)

// Load reads the configuration at path (DefaultConfigPath when empty) over
// the defaults and applies CEPIP_* environment overrides. A missing file is
// not an error.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOptionalFile(),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Verify validates the configuration.
func Verify(cfg *CLIConfig) error {
	if cfg.Server == "" {
		return errors.New("server is required")
	}
	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return err
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
	}
	if cfg.RateLimit < 0 {
		return errors.New("rate_limit must not be negative")
	}
	if !slices.Contains([]string{storage.EngineBadger, storage.EngineMemory, ""}, cfg.State.Engine) {
		return fmt.Errorf("state.engine: unknown engine %q", cfg.State.Engine)
	}
	if (cfg.ClientCert == "") != (cfg.ClientKey == "") {
		return errors.New("client_cert and client_key must be set together")
	}
	if !slices.Contains([]string{"text", "json", ""}, cfg.Log.Format) {
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}
