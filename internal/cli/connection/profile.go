package connection

import (
	"errors"
	"fmt"
	"sort"
)

// ErrProfileNotFound is returned for an unknown profile name.
var ErrProfileNotFound = errors.New("profile not found")

// Profile names a backend.
type Profile struct {
	Name      string `koanf:"name" yaml:"name" json:"name"`
	Server    string `koanf:"server" yaml:"server" json:"server"`
	APIPrefix string `koanf:"api_prefix" yaml:"api_prefix,omitempty" json:"api_prefix,omitempty"`
}

// Manager keeps the known profiles and which one is active.
type Manager struct {
	profiles map[string]Profile
	current  string
}

// NewManager creates a manager. An unknown current name is ignored.
func NewManager(profiles []Profile, current string) *Manager {
	m := &Manager{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		m.profiles[p.Name] = p
	}
	if _, ok := m.profiles[current]; ok {
		m.current = current
	}
	return m
}

// Add inserts or replaces a profile.
func (m *Manager) Add(p Profile) error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Server == "" {
		return fmt.Errorf("profile %q: server is required", p.Name)
	}
	p.Server = NormalizeURL(p.Server)
	m.profiles[p.Name] = p
	return nil
}

// Remove deletes a profile; removing the active one leaves none active.
func (m *Manager) Remove(name string) error {
	if _, ok := m.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(m.profiles, name)
	if m.current == name {
		m.current = ""
	}
	return nil
}

// Use makes name the active profile.
func (m *Manager) Use(name string) (Profile, error) {
	p, ok := m.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	m.current = name
	return p, nil
}

// Current returns the active profile.
func (m *Manager) Current() (Profile, bool) {
	p, ok := m.profiles[m.current]
	return p, ok
}

// List returns the profiles sorted by name.
func (m *Manager) List() []Profile {
	out := make([]Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
