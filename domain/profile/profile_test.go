package profile

import (
	"errors"
	"testing"
	"testing/fstest"
)

const desktopYAML = `
profiles:
  - name: chromium-1920x1080
    engine: chromium
    viewport: {width: 1920, height: 1080}
  - name: firefox-1366x768
    engine: firefox
    viewport: {width: 1366, height: 768}
`

func TestLoader_LoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"profiles/desktop.yaml": {Data: []byte(desktopYAML)},
		"profiles/README.md":    {Data: []byte("ignored")},
	}

	registry := NewRegistry()
	if err := NewLoader(registry).LoadFromFS(fsys); err != nil {
		t.Fatalf("LoadFromFS() error = %v", err)
	}

	if registry.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", registry.Count())
	}

	p, err := registry.Get("firefox-1366x768")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Width != 1366 || p.Height != 768 {
		t.Errorf("viewport = %dx%d, want 1366x768", p.Width, p.Height)
	}
	if !p.IsSlow() {
		t.Error("firefox profile should be slow")
	}
}

func TestLoader_InvalidProfile(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown engine", "profiles:\n  - name: webkit\n    engine: webkit\n    viewport: {width: 1, height: 1}\n"},
		{"missing viewport", "profiles:\n  - name: tiny\n    engine: chromium\n"},
		{"missing name", "profiles:\n  - engine: chromium\n    viewport: {width: 1, height: 1}\n"},
		{"malformed", "profiles: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"profiles/bad.yaml": {Data: []byte(tt.yaml)}}
			if err := NewLoader(NewRegistry()).LoadFromFS(fsys); err == nil {
				t.Error("LoadFromFS() should fail")
			}
		})
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	if err := NewLoader(NewRegistry()).LoadFromFS(fstest.MapFS{}); err == nil {
		t.Error("LoadFromFS() should fail without a profiles directory")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("safari")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Get() error = %v, want ErrProfileNotFound", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&Profile{Name: "firefox-1920x1080", Engine: EngineFirefox, Width: 1920, Height: 1080})
	r.Register(&Profile{Name: "chromium-1366x768", Engine: EngineChromium, Width: 1366, Height: 768})

	names := r.List()
	if len(names) != 2 || names[0] != "chromium-1366x768" || names[1] != "firefox-1920x1080" {
		t.Errorf("List() = %v", names)
	}

	all := r.All()
	if len(all) != 2 || all[0].Name != "chromium-1366x768" {
		t.Errorf("All() order = %v", all)
	}
	if all[0].IsSlow() {
		t.Error("chromium profile should not be slow")
	}
}
