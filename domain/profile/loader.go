package profile

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlProfiles is the YAML structure for profile definitions.
type yamlProfiles struct {
	Profiles []yamlProfile `yaml:"profiles"`
}

type yamlProfile struct {
	Name     string       `yaml:"name"`
	Engine   string       `yaml:"engine"`
	Viewport yamlViewport `yaml:"viewport"`
}

type yamlViewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Loader handles loading profile definitions.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new profile loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads profile definitions from an embedded or real filesystem.
// It expects YAML files in a "profiles" subdirectory.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "profiles")
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, "profiles/"+entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

// loadFile loads a single profile definition file.
func (l *Loader) loadFile(fsys fs.FS, path string) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var def yamlProfiles
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	for _, yp := range def.Profiles {
		p := &Profile{
			Name:   yp.Name,
			Engine: yp.Engine,
			Width:  yp.Viewport.Width,
			Height: yp.Viewport.Height,
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("invalid profile in %s: %w", path, err)
		}
		l.registry.Register(p)
	}

	return nil
}
