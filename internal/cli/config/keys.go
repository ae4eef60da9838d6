package config

import (
	"fmt"
	"sort"
	"strconv"
)

// ErrUnknownKey is returned by Get and Set for keys that do not exist.
type ErrUnknownKey string

func (e ErrUnknownKey) Error() string { return fmt.Sprintf("unknown config key %q", string(e)) }

type field struct {
	get func(*CLIConfig) string
	set func(*CLIConfig, string) error
}

func stringField(p func(*CLIConfig) *string) field {
	return field{
		get: func(c *CLIConfig) string { return *p(c) },
		set: func(c *CLIConfig, v string) error { *p(c) = v; return nil },
	}
}

var fields = map[string]field{
	"server":                  stringField(func(c *CLIConfig) *string { return &c.Server }),
	"api_prefix":              stringField(func(c *CLIConfig) *string { return &c.APIPrefix }),
	"output":                  stringField(func(c *CLIConfig) *string { return &c.Output }),
	"timeout":                 stringField(func(c *CLIConfig) *string { return &c.Timeout }),
	"ca_file":                 stringField(func(c *CLIConfig) *string { return &c.CAFile }),
	"client_cert":             stringField(func(c *CLIConfig) *string { return &c.ClientCert }),
	"client_key":              stringField(func(c *CLIConfig) *string { return &c.ClientKey }),
	"state.engine":            stringField(func(c *CLIConfig) *string { return &c.State.Engine }),
	"state.dir":               stringField(func(c *CLIConfig) *string { return &c.State.Dir }),
	"state.key_file":          stringField(func(c *CLIConfig) *string { return &c.State.KeyFile }),
	"log.level":               stringField(func(c *CLIConfig) *string { return &c.Log.Level }),
	"log.format":              stringField(func(c *CLIConfig) *string { return &c.Log.Format }),
	"telemetry.otlp_endpoint": stringField(func(c *CLIConfig) *string { return &c.Telemetry.OTLPEndpoint }),
	"history_file":            stringField(func(c *CLIConfig) *string { return &c.HistoryFile }),
	"current_profile":         stringField(func(c *CLIConfig) *string { return &c.CurrentProfile }),
	"rate_limit": {
		get: func(c *CLIConfig) string { return strconv.FormatFloat(c.RateLimit, 'f', -1, 64) },
		set: func(c *CLIConfig, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("rate_limit: %w", err)
			}
			c.RateLimit = f
			return nil
		},
	},
	"state.encrypt": {
		get: func(c *CLIConfig) string { return strconv.FormatBool(c.State.Encrypt) },
		set: func(c *CLIConfig, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("state.encrypt: %w", err)
			}
			c.State.Encrypt = b
			return nil
		},
	},
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as a string.
func Get(cfg *CLIConfig, key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", ErrUnknownKey(key)
	}
	return f.get(cfg), nil
}

// Set assigns value to key and validates the result. cfg is left unchanged
// when the new value is invalid.
func Set(cfg *CLIConfig, key, value string) error {
	f, ok := fields[key]
	if !ok {
		return ErrUnknownKey(key)
	}
	next := *cfg
	if err := f.set(&next, value); err != nil {
		return err
	}
	if err := Verify(&next); err != nil {
		return err
	}
	*cfg = next
	return nil
}
