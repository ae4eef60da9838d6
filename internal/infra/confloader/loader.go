package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix selects the environment variables read by LoadEnv.
const DefaultEnvPrefix = "CEPIP_"

// Loader merges configuration layers into one koanf tree. Each Load* call
// overrides the keys it sets.
type Loader struct {
	k            *koanf.Koanf
	envPrefix    string
	filePath     string
	optionalFile bool
	loaded       bool
}

type Option func(*Loader)

func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile names the YAML file read by Load.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithOptionalFile lets Load proceed when the file does not exist. A file
// that exists but does not parse is still an error.
func WithOptionalFile() Option {
	return func(l *Loader) { l.optionalFile = true }
}

func NewLoader(opts ...Option) *Loader {
	l := &Loader{k: koanf.New("."), envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load layers the file, then the environment, and decodes the result into
// target using koanf struct tags. Defaults go in with LoadMap before Load;
// flags go in with LoadMap after it, followed by another Unmarshal.
func (l *Loader) Load(target any) error {
	err := l.LoadFile(l.filePath)
	if err != nil && !(l.optionalFile && errors.Is(err, fs.ErrNotExist)) {
		return err
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	l.loaded = true
	return nil
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	// file.Provider reports a missing file only when read; check first so
	// the error wraps fs.ErrNotExist.
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges the prefixed environment. See EnvKey for the name
// mapping.
func (l *Loader) LoadEnv() error {
	p := env.Provider(l.envPrefix, ".", func(name string) string {
		return EnvKey(l.envPrefix, name)
	})
	if err := l.k.Load(p, nil); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// EnvKey maps CEPIP_API_PREFIX to api_prefix and CEPIP_STATE__ENGINE to
// state.engine: a double underscore descends one level, single
// underscores are part of the key.
func EnvKey(prefix, name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, prefix))
	return strings.ReplaceAll(key, "__", ".")
}

// LoadMap merges values keyed by dotted paths.
func (l *Loader) LoadMap(values map[string]any) error {
	if err := l.k.Load(mapProvider(values), nil); err != nil {
		return fmt.Errorf("config values: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged tree into target.
func (l *Loader) Unmarshal(target any) error { return l.k.Unmarshal("", target) }

func (l *Loader) Get(key string) any { return l.k.Get(key) }

func (l *Loader) GetString(key string) string { return l.k.String(key) }

// Exists reports whether any layer set key.
func (l *Loader) Exists(key string) bool { return l.k.Exists(key) }

// IsLoaded reports whether Load has completed.
func (l *Loader) IsLoaded() bool { return l.loaded }

// Keys lists the flattened keys of the merged tree.
func (l *Loader) Keys() []string { return l.k.Keys() }
