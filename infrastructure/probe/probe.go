// Package probe checks that the application under test is reachable before
// browsers are launched against it.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrUnreachable is returned by WaitReachable when the deadline passes first.
var ErrUnreachable = errors.New("site unreachable")

// Result is the outcome of one probe.
type Result struct {
	URL        string
	StatusCode int
	Latency    time.Duration
}

// OK reports whether the site answered with a non-error status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// Config contains configuration for the prober.
type Config struct {
	BaseURL string
	// Path is appended to BaseURL for each probe.
	Path           string
	Timeout        time.Duration
	RetryMax       int
	RetryWaitMin   time.Duration
	RetryWaitMax   time.Duration
	HealthInterval time.Duration
}

// DefaultConfig returns default prober configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://demoqa.com",
		Path:           "/",
		Timeout:        15 * time.Second,
		RetryMax:       3,
		RetryWaitMin:   time.Second,
		RetryWaitMax:   10 * time.Second,
		HealthInterval: 30 * time.Second,
	}
}

// Prober issues GET probes with retries and tracks the last known health.
type Prober struct {
	config  *Config
	client  *retryablehttp.Client
	logger  *slog.Logger
	healthy atomic.Bool

	loopMu     sync.Mutex
	loopCancel context.CancelFunc
	loopWg     sync.WaitGroup
}

// New creates a prober.
func New(config *Config, logger *slog.Logger) *Prober {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "probe")

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = config.Timeout
	client.RetryMax = config.RetryMax
	client.RetryWaitMin = config.RetryWaitMin
	client.RetryWaitMax = config.RetryWaitMax
	client.Logger = logger

	return &Prober{config: config, client: client, logger: logger}
}

// URL returns the probed address.
func (p *Prober) URL() string {
	return strings.TrimRight(p.config.BaseURL, "/") + "/" + strings.TrimLeft(p.config.Path, "/")
}

// Check probes the site once (with transport-level retries) and records health.
func (p *Prober) Check(ctx context.Context) (*Result, error) {
	target := p.URL()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.healthy.Store(false)
		return nil, fmt.Errorf("failed to reach %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &Result{URL: target, StatusCode: resp.StatusCode, Latency: time.Since(start)}
	p.healthy.Store(result.OK())
	return result, nil
}

// WaitReachable probes until the site answers or ctx expires.
func (p *Prober) WaitReachable(ctx context.Context, interval time.Duration) (*Result, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		result, err := p.Check(ctx)
		if err == nil && result.OK() {
			return result, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("unexpected status %d", result.StatusCode)
		} else {
			lastErr = err
		}
		p.logger.Warn("Site not reachable yet", "url", p.URL(), "error", lastErr)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, p.URL(), lastErr)
		case <-ticker.C:
		}
	}
}

// IsHealthy returns the outcome of the last probe.
func (p *Prober) IsHealthy() bool {
	return p.healthy.Load()
}

// StartHealthLoop probes in the background every HealthInterval until Close.
func (p *Prober) StartHealthLoop() {
	p.loopMu.Lock()
	defer p.loopMu.Unlock()
	if p.loopCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.loopCancel = cancel
	p.loopWg.Add(1)
	go p.healthLoop(ctx)
}

func (p *Prober) healthLoop(ctx context.Context) {
	defer p.loopWg.Done()

	ticker := time.NewTicker(p.config.HealthInterval)
	defer ticker.Stop()

	for {
		if _, err := p.Check(ctx); err != nil && ctx.Err() == nil {
			p.logger.Debug("Health probe failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close stops the health loop.
func (p *Prober) Close() {
	p.loopMu.Lock()
	cancel := p.loopCancel
	p.loopCancel = nil
	p.loopMu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.loopWg.Wait()
}
