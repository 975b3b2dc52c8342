// Package config loads suite configuration from the embedded YAML file and
// applies environment overrides.
package config

import (
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"demoqa-e2e/domain/profile"
	"demoqa-e2e/infrastructure/browser"
)

// Config is the resolved suite configuration.
type Config struct {
	BaseURL  string
	Profile  string
	Headless bool
	CI       bool
	LogLevel string

	Browser   BrowserConfig
	AdBlock   []string
	Artifacts ArtifactConfig
	Probe     ProbeConfig

	// MongoURI enables result persistence when set.
	MongoURI string
}

// BrowserConfig holds launch settings shared by all profiles.
type BrowserConfig struct {
	LaunchTimeout time.Duration
	ChromiumArgs  []string
	FirefoxPrefs  map[string]any
}

// ArtifactConfig locates test output.
type ArtifactConfig struct {
	Dir         string
	JUnit       string
	Screenshots string
}

// ProbeConfig tunes the reachability probe.
type ProbeConfig struct {
	Path     string
	Timeout  time.Duration
	RetryMax int
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		BaseURL:  "https://demoqa.com",
		Profile:  "chromium-1920x1080",
		Headless: true,
		LogLevel: "info",
		Browser: BrowserConfig{
			LaunchTimeout: 60 * time.Second,
		},
		Artifacts: ArtifactConfig{
			Dir:         "test-results",
			JUnit:       "junit.xml",
			Screenshots: "screenshots",
		},
		Probe: ProbeConfig{
			Path:     "/",
			Timeout:  15 * time.Second,
			RetryMax: 3,
		},
	}
}

type yamlConfig struct {
	BaseURL  string `yaml:"baseURL"`
	Profile  string `yaml:"profile"`
	Headless *bool  `yaml:"headless"`
	LogLevel string `yaml:"logLevel"`
	Browser  struct {
		LaunchTimeout duration       `yaml:"launchTimeout"`
		ChromiumArgs  []string       `yaml:"chromiumArgs"`
		FirefoxPrefs  map[string]any `yaml:"firefoxPrefs"`
	} `yaml:"browser"`
	AdBlock   []string `yaml:"adBlock"`
	Artifacts struct {
		Dir         string `yaml:"dir"`
		JUnit       string `yaml:"junit"`
		Screenshots string `yaml:"screenshots"`
	} `yaml:"artifacts"`
	Probe struct {
		Path     string   `yaml:"path"`
		Timeout  duration `yaml:"timeout"`
		RetryMax *int     `yaml:"retryMax"`
	} `yaml:"probe"`
	MongoURI string `yaml:"mongoURI"`
}

// duration is a wrapper for time.Duration that handles YAML parsing.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// envOverrides lists the variables read with the DEMOQA_ prefix.
type envOverrides struct {
	BaseURL     *string `envconfig:"BASE_URL"`
	Profile     *string `envconfig:"PROFILE"`
	Headless    *bool   `envconfig:"HEADLESS"`
	LogLevel    *string `envconfig:"LOG_LEVEL"`
	MongoURI    *string `envconfig:"MONGO_URI"`
	ArtifactDir *string `envconfig:"ARTIFACT_DIR"`
}

type ciEnv struct {
	CI string `envconfig:"CI"`
}

// Load reads config.yaml from fsys, then applies environment overrides.
func Load(fsys fs.FS) (*Config, error) {
	data, err := fs.ReadFile(fsys, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Parse overlays YAML data on Default. Environment variables are not read.
func Parse(data []byte) (*Config, error) {
	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	setString(&cfg.BaseURL, y.BaseURL)
	setString(&cfg.Profile, y.Profile)
	setString(&cfg.LogLevel, y.LogLevel)
	setString(&cfg.MongoURI, y.MongoURI)
	if y.Headless != nil {
		cfg.Headless = *y.Headless
	}

	if y.Browser.LaunchTimeout > 0 {
		cfg.Browser.LaunchTimeout = time.Duration(y.Browser.LaunchTimeout)
	}
	cfg.Browser.ChromiumArgs = y.Browser.ChromiumArgs
	cfg.Browser.FirefoxPrefs = y.Browser.FirefoxPrefs
	cfg.AdBlock = y.AdBlock

	setString(&cfg.Artifacts.Dir, y.Artifacts.Dir)
	setString(&cfg.Artifacts.JUnit, y.Artifacts.JUnit)
	setString(&cfg.Artifacts.Screenshots, y.Artifacts.Screenshots)

	setString(&cfg.Probe.Path, y.Probe.Path)
	if y.Probe.Timeout > 0 {
		cfg.Probe.Timeout = time.Duration(y.Probe.Timeout)
	}
	if y.Probe.RetryMax != nil {
		cfg.Probe.RetryMax = *y.Probe.RetryMax
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ApplyEnv applies CI and the DEMOQA_* variables.
func (c *Config) ApplyEnv() error {
	var ci ciEnv
	if err := envconfig.Process("", &ci); err != nil {
		return fmt.Errorf("failed to read CI: %w", err)
	}
	c.CI = truthy(ci.CI)

	var env envOverrides
	if err := envconfig.Process("demoqa", &env); err != nil {
		return fmt.Errorf("failed to read environment overrides: %w", err)
	}
	if env.BaseURL != nil {
		c.BaseURL = *env.BaseURL
	}
	if env.Profile != nil {
		c.Profile = *env.Profile
	}
	if env.Headless != nil {
		c.Headless = *env.Headless
	}
	if env.LogLevel != nil {
		c.LogLevel = *env.LogLevel
	}
	if env.MongoURI != nil {
		c.MongoURI = *env.MongoURI
	}
	if env.ArtifactDir != nil {
		c.Artifacts.Dir = *env.ArtifactDir
	}
	return nil
}

// truthy follows the usual CI convention: any value except "", "0" and "false".
func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false":
		return false
	}
	return true
}

// Validate checks the fields every run depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", c.BaseURL)
	}
	if c.Profile == "" {
		return fmt.Errorf("no profile selected")
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifact dir is required")
	}
	return nil
}

// ResolveURL resolves ref against the base URL. Absolute URLs are returned unchanged.
func (c *Config) ResolveURL(ref string) (string, error) {
	return ResolveURL(c.BaseURL, ref)
}

// ResolveURL resolves ref against base.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

// JUnitPath returns the JUnit report location.
func (c *Config) JUnitPath() string {
	return filepath.Join(c.Artifacts.Dir, c.Artifacts.JUnit)
}

// ScreenshotDir returns the failure screenshot directory.
func (c *Config) ScreenshotDir() string {
	return filepath.Join(c.Artifacts.Dir, c.Artifacts.Screenshots)
}

// DriverConfig builds the driver settings for a profile.
func (c *Config) DriverConfig(p *profile.Profile) (*browser.DriverConfig, error) {
	engine, err := browser.ParseEngine(p.Engine)
	if err != nil {
		return nil, err
	}

	dc := browser.DefaultDriverConfig()
	dc.Engine = engine
	dc.Headless = c.Headless
	dc.Viewport = browser.Viewport{Width: p.Width, Height: p.Height}
	if c.Browser.LaunchTimeout > 0 {
		dc.LaunchTimeout = c.Browser.LaunchTimeout
	}
	if engine == browser.EngineChromium {
		dc.ExtraArgs = append([]string(nil), c.Browser.ChromiumArgs...)
	} else {
		dc.FirefoxPrefs = c.Browser.FirefoxPrefs
	}
	return dc, nil
}
