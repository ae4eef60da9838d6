package config

import (
	"time"

	"github.com/yndnr/cepip-console/internal/cli/connection"
)

// CLIConfig is the configuration of cepip-cli.
type CLIConfig struct {
	Server    string `koanf:"server" yaml:"server"`
	APIPrefix string `koanf:"api_prefix" yaml:"api_prefix"`
	Output    string `koanf:"output" yaml:"output"` // table, json, yaml

	// Timeout bounds every backend call, e.g. "30s".
	Timeout string `koanf:"timeout" yaml:"timeout"`
	// RateLimit is requests per second; 0 disables throttling.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`

	CAFile     string `koanf:"ca_file" yaml:"ca_file,omitempty"`
	ClientCert string `koanf:"client_cert" yaml:"client_cert,omitempty"`
	ClientKey  string `koanf:"client_key" yaml:"client_key,omitempty"`

	State     StateSection     `koanf:"state" yaml:"state"`
	Log       LogSection       `koanf:"log" yaml:"log"`
	Telemetry TelemetrySection `koanf:"telemetry" yaml:"telemetry"`

	HistoryFile string `koanf:"history_file" yaml:"history_file"`

	Profiles       []connection.Profile `koanf:"profiles" yaml:"profiles,omitempty"`
	CurrentProfile string               `koanf:"current_profile" yaml:"current_profile,omitempty"`
}

// StateSection configures where the session survives between runs.
type StateSection struct {
	Engine  string `koanf:"engine" yaml:"engine"` // badger, memory
	Dir     string `koanf:"dir" yaml:"dir"`
	Encrypt bool   `koanf:"encrypt" yaml:"encrypt"`
	KeyFile string `koanf:"key_file" yaml:"key_file,omitempty"`
}

type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

type TelemetrySection struct {
	// OTLPEndpoint enables tracing of backend calls when set.
	OTLPEndpoint string `koanf:"otlp_endpoint" yaml:"otlp_endpoint,omitempty"`
}

// TimeoutDuration returns the parsed timeout, falling back to
// connection.DefaultTimeout when it is unset or invalid.
func (c *CLIConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return connection.DefaultTimeout
	}
	return d
}

// ActiveServer returns the server and API prefix to talk to: the current
// profile's when one is selected, the top-level values otherwise.
func (c *CLIConfig) ActiveServer() (server, prefix string) {
	server, prefix = c.Server, c.APIPrefix
	if c.CurrentProfile == "" {
		return server, prefix
	}
	for _, p := range c.Profiles {
		if p.Name != c.CurrentProfile {
			continue
		}
		server = p.Server
		if p.APIPrefix != "" {
			prefix = p.APIPrefix
		}
		break
	}
	return server, prefix
}

// ProfileManager returns a connection.Manager over the saved profiles.
func (c *CLIConfig) ProfileManager() *connection.Manager {
	return connection.NewManager(c.Profiles, c.CurrentProfile)
}

// SetProfiles stores the manager's state back into the config.
func (c *CLIConfig) SetProfiles(m *connection.Manager) {
	c.Profiles = m.List()
	c.CurrentProfile = ""
	if p, ok := m.Current(); ok {
		c.CurrentProfile = p.Name
	}
}
