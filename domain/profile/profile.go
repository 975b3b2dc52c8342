// Package profile defines the browser/viewport combinations the suite runs under.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrProfileNotFound is returned when a profile name is not registered.
var ErrProfileNotFound = errors.New("profile not found")

// Engine names understood by the browser layer.
const (
	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
)

// Profile is one browser engine at one viewport size.
type Profile struct {
	// Name is the unique identifier, e.g. "chromium-1920x1080".
	Name string

	// Engine is "chromium" or "firefox".
	Engine string

	// Width and Height give the viewport in CSS pixels.
	Width  int
	Height int
}

// IsSlow reports whether the profile's engine needs the larger timing budget.
func (p *Profile) IsSlow() bool {
	return p.Engine == EngineFirefox
}

// Validate checks the profile fields.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.Engine != EngineChromium && p.Engine != EngineFirefox {
		return fmt.Errorf("profile %s: unsupported engine %q", p.Name, p.Engine)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("profile %s: invalid viewport %dx%d", p.Name, p.Width, p.Height)
	}
	return nil
}

// Registry manages profiles and provides lookup functionality.
type Registry struct {
	profiles map[string]*Profile
	mu       sync.RWMutex
}

// NewRegistry creates a new empty profile registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
	}
}

// Register adds a profile to the registry.
// If a profile with the same name exists, it will be replaced.
func (r *Registry) Register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
}

// Get retrieves a profile by name.
func (r *Registry) Get(name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// List returns all registered profile names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered profiles sorted by name.
func (r *Registry) All() []*Profile {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(names))
	for _, name := range names {
		out = append(out, r.profiles[name])
	}
	return out
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
