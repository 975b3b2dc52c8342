package retry

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlTable is the YAML structure of a policy file.
type yamlTable struct {
	Policies []yamlPolicy `yaml:"policies"`
}

type yamlPolicy struct {
	Speed       string        `yaml:"speed"`
	Environment string        `yaml:"environment"`
	Navigation  *yamlSchedule `yaml:"navigation,omitempty"`
	Element     *yamlSchedule `yaml:"element,omitempty"`
	Click       *yamlSchedule `yaml:"click,omitempty"`
	Fill        *yamlSchedule `yaml:"fill,omitempty"`
}

// yamlSchedule fields are pointers so an explicit zero, such as settle: 0s,
// overrides the default.
type yamlSchedule struct {
	MaxAttempts     *int      `yaml:"maxAttempts,omitempty"`
	BaseTimeout     *duration `yaml:"baseTimeout,omitempty"`
	TimeoutStep     *duration `yaml:"timeoutStep,omitempty"`
	FallbackTimeout *duration `yaml:"fallbackTimeout,omitempty"`
	FallbackStep    *duration `yaml:"fallbackStep,omitempty"`
	FallbackDelay   *duration `yaml:"fallbackDelay,omitempty"`
	Backoff         *duration `yaml:"backoff,omitempty"`
	Growth          string    `yaml:"growth,omitempty"`
	MaxBackoff      *duration `yaml:"maxBackoff,omitempty"`
	Settle          *duration `yaml:"settle,omitempty"`
	PreDelay        *duration `yaml:"preDelay,omitempty"`
	InitialDelay    *duration `yaml:"initialDelay,omitempty"`
	IdleTimeout     *duration `yaml:"idleTimeout,omitempty"`
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

// LoadFromFS reads policies/retry.yaml from fsys and overlays it on the
// default table. Only fields present in the file change. The merged table
// must pass Validate.
func LoadFromFS(fsys fs.FS) (Table, error) {
	data, err := fs.ReadFile(fsys, "policies/retry.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read retry policy file: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML policy data on the default table.
func Parse(data []byte) (Table, error) {
	var def yamlTable
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse retry policy file: %w", err)
	}

	table := DefaultTable()
	for i, yp := range def.Policies {
		key, err := parseKey(yp.Speed, yp.Environment)
		if err != nil {
			return nil, fmt.Errorf("policy %d: %w", i, err)
		}
		p := table[key]
		if err := overlay(&p.Navigation, yp.Navigation); err != nil {
			return nil, fmt.Errorf("policy %s navigation: %w", key, err)
		}
		if err := overlay(&p.Element, yp.Element); err != nil {
			return nil, fmt.Errorf("policy %s element: %w", key, err)
		}
		if err := overlay(&p.Click, yp.Click); err != nil {
			return nil, fmt.Errorf("policy %s click: %w", key, err)
		}
		if err := overlay(&p.Fill, yp.Fill); err != nil {
			return nil, fmt.Errorf("policy %s fill: %w", key, err)
		}
		table[key] = p
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func parseKey(speed, env string) (Key, error) {
	var k Key
	switch strings.ToLower(speed) {
	case "fast":
		k.Speed = Fast
	case "slow":
		k.Speed = Slow
	default:
		return k, fmt.Errorf("unknown speed %q", speed)
	}
	switch strings.ToLower(env) {
	case "local":
		k.Environment = Local
	case "ci":
		k.Environment = CI
	default:
		return k, fmt.Errorf("unknown environment %q", env)
	}
	return k, nil
}

func overlay(s *Schedule, ys *yamlSchedule) error {
	if ys == nil {
		return nil
	}
	if ys.MaxAttempts != nil {
		s.MaxAttempts = *ys.MaxAttempts
	}
	setDuration(&s.BaseTimeout, ys.BaseTimeout)
	setDuration(&s.TimeoutStep, ys.TimeoutStep)
	setDuration(&s.FallbackTimeout, ys.FallbackTimeout)
	setDuration(&s.FallbackStep, ys.FallbackStep)
	setDuration(&s.FallbackDelay, ys.FallbackDelay)
	setDuration(&s.Backoff, ys.Backoff)
	setDuration(&s.MaxBackoff, ys.MaxBackoff)
	setDuration(&s.Settle, ys.Settle)
	setDuration(&s.PreDelay, ys.PreDelay)
	setDuration(&s.InitialDelay, ys.InitialDelay)
	setDuration(&s.IdleTimeout, ys.IdleTimeout)

	switch strings.ToLower(ys.Growth) {
	case "":
	case "linear":
		s.Growth = Linear
	case "exponential":
		s.Growth = Exponential
	default:
		return fmt.Errorf("unknown growth %q", ys.Growth)
	}
	return nil
}

func setDuration(dst *time.Duration, v *duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}
