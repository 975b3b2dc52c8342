// Package application provides the application layer for running scenarios on
// isolated browser sessions.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"demoqa-e2e/application/session"
	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/domain/profile"
	"demoqa-e2e/domain/report"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/browser"
	"demoqa-e2e/infrastructure/config"
	"demoqa-e2e/infrastructure/junit"
)

// ErrSkipped marks a scenario that chose not to run. Wrap it with Skip.
var ErrSkipped = errors.New("skipped")

// Skip returns an error that records the scenario as skipped.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// captureTimeout bounds the failure screenshot, which may run after ctx expired.
const captureTimeout = 10 * time.Second

// Coordinator owns the sessions of one run and collects their results.
type Coordinator struct {
	runID string

	// Sessions
	sessions   map[string]*session.Session
	sessionsMu sync.RWMutex

	// Results
	results   []*report.Result
	resultsMu sync.Mutex

	// Dependencies
	cfg           *config.Config
	profiles      *profile.Registry
	policies      retry.Table
	reports       *report.Service
	eventBus      eventbus.EventBus
	driverFactory DriverFactory
	sleep         func(ctx context.Context, d time.Duration) error
	logger        *slog.Logger

	subscription string
}

// DriverFactory creates browser drivers.
type DriverFactory func(cfg *browser.DriverConfig) browser.Driver

// NewDriver picks the driver implementation for the configured engine:
// chromedp for chromium, playwright for firefox.
func NewDriver(cfg *browser.DriverConfig) browser.Driver {
	if cfg != nil && cfg.Engine == browser.EngineFirefox {
		return browser.NewPlaywrightDriver(cfg)
	}
	return browser.NewChromeDPDriver(cfg)
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	// RunID defaults to a random UUID.
	RunID    string
	Config   *config.Config
	Profiles *profile.Registry
	// Policies defaults to retry.DefaultTable().
	Policies retry.Table
	// Reports persists results when set.
	Reports       *report.Service
	EventBus      eventbus.EventBus
	DriverFactory DriverFactory
	Logger        *slog.Logger
	// Sleep is handed to every session; nil waits for real.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator creates a new run coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Profiles == nil {
		cfg.Profiles = profile.NewRegistry()
	}
	if cfg.Policies == nil {
		cfg.Policies = retry.DefaultTable()
	}
	if cfg.DriverFactory == nil {
		cfg.DriverFactory = NewDriver
	}

	c := &Coordinator{
		runID:         cfg.RunID,
		sessions:      make(map[string]*session.Session),
		cfg:           cfg.Config,
		profiles:      cfg.Profiles,
		policies:      cfg.Policies,
		reports:       cfg.Reports,
		eventBus:      cfg.EventBus,
		driverFactory: cfg.DriverFactory,
		sleep:         cfg.Sleep,
		logger:        cfg.Logger.With("run_id", cfg.RunID),
	}

	if c.eventBus != nil {
		c.subscription = c.eventBus.Subscribe(c.handleEvent, eventbus.Named("SessionStopped", "ActionFailed"))
	}

	return c
}

// RunID returns the identifier shared by every result of this run.
func (c *Coordinator) RunID() string {
	return c.runID
}

// Config returns the suite configuration.
func (c *Coordinator) Config() *config.Config {
	return c.cfg
}

// PolicyFor returns the retry policy for a profile in the current environment.
func (c *Coordinator) PolicyFor(p *profile.Profile) retry.Policy {
	return c.policies.Lookup(retry.SpeedFor(p.IsSlow()), retry.EnvironmentFor(c.cfg.CI))
}

// Stop shuts down the coordinator and all sessions.
func (c *Coordinator) Stop() {
	if c.eventBus != nil && c.subscription != "" {
		c.eventBus.Unsubscribe(c.subscription)
	}

	c.sessionsMu.Lock()
	sessions := make([]*session.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.sessions = make(map[string]*session.Session)
	c.sessionsMu.Unlock()

	// Stop all sessions in parallel
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(sess *session.Session) {
			defer wg.Done()
			sess.Stop()
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("Coordinator stop timeout, some sessions may not have stopped cleanly")
	}

	c.logger.Info("Coordinator stopped", "sessions", len(sessions))
}

// CreateSession builds an unstarted session for the named profile. An empty
// name selects the configured default profile. With warmup set, the session
// loads the base URL while preparing.
func (c *Coordinator) CreateSession(profileName string, warmup bool) (*session.Session, error) {
	if profileName == "" {
		profileName = c.cfg.Profile
	}
	p, err := c.profiles.Get(profileName)
	if err != nil {
		return nil, err
	}
	dc, err := c.cfg.DriverConfig(p)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}

	var warmupURL string
	if warmup {
		if warmupURL, err = c.cfg.ResolveURL("/"); err != nil {
			return nil, err
		}
	}

	sess := session.New(&session.Config{
		Profile:       p,
		Driver:        c.driverFactory(dc),
		Policy:        c.PolicyFor(p),
		BaseURL:       c.cfg.BaseURL,
		EventBus:      c.eventBus,
		Logger:        c.logger,
		AdBlock:       c.cfg.AdBlock,
		ScreenshotDir: c.cfg.ScreenshotDir(),
		WarmupURL:     warmupURL,
		Sleep:         c.sleep,
	})

	c.sessionsMu.Lock()
	c.sessions[sess.ID()] = sess
	c.sessionsMu.Unlock()

	c.logger.Debug("Session created", "session_id", sess.ID(), "profile", p.Name)
	return sess, nil
}

// removeSession forgets a session without stopping it.
func (c *Coordinator) removeSession(id string) {
	c.sessionsMu.Lock()
	delete(c.sessions, id)
	c.sessionsMu.Unlock()
}

// GetSession returns a session by ID.
func (c *Coordinator) GetSession(id string) *session.Session {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()
	return c.sessions[id]
}

// GetAllSessions returns all live sessions.
func (c *Coordinator) GetAllSessions() []*session.Session {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()

	sessions := make([]*session.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// GetActiveSessions returns sessions that can accept operations.
func (c *Coordinator) GetActiveSessions() []*session.Session {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()

	sessions := make([]*session.Session, 0)
	for _, s := range c.sessions {
		if s.State().CanAcceptOperations() {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// SessionCount returns the number of live sessions.
func (c *Coordinator) SessionCount() int {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()
	return len(c.sessions)
}

// Scenario is one test body run on a fresh session.
type Scenario struct {
	Suite string
	Name  string
	// Profile defaults to the configured profile.
	Profile string
	// Warmup loads the base URL before Run is called.
	Warmup bool
	Run    func(ctx context.Context, s *session.Session) error
}

// Run executes a scenario on its own session and records the result.
// A failing scenario gets a screenshot before its browser is closed.
func (c *Coordinator) Run(ctx context.Context, sc Scenario) *report.Result {
	profileName := sc.Profile
	if profileName == "" {
		profileName = c.cfg.Profile
	}
	result := &report.Result{
		RunID:     c.runID,
		Suite:     sc.Suite,
		Name:      sc.Name,
		Profile:   profileName,
		StartedAt: time.Now(),
	}
	logger := c.logger.With("test", result.Identity())

	sessionID := ""
	sess, err := c.CreateSession(profileName, sc.Warmup)
	if err == nil {
		sessionID = sess.ID()
		err = c.runOn(ctx, sess, sc, result)
		if stopErr := sess.Stop(); stopErr != nil {
			logger.Warn("Failed to stop session", "error", stopErr)
		}
		c.removeSession(sessionID)
	}

	result.Duration = time.Since(result.StartedAt)
	switch {
	case err == nil:
		result.Outcome = report.OutcomePassed
	case errors.Is(err, ErrSkipped):
		result.Outcome = report.OutcomeSkipped
		result.Error = err.Error()
	default:
		result.Outcome = report.OutcomeFailed
		result.Error = err.Error()
	}

	if result.Failed() {
		logger.Error("Test failed", "error", err, "screenshot", result.Screenshot)
	} else {
		logger.Info("Test finished", "outcome", result.Outcome, "duration", result.Duration, "retries", result.Retries)
	}

	c.record(ctx, result)
	if c.eventBus != nil {
		c.eventBus.Publish(event.NewTestFinished(sessionID, result.Identity(), string(result.Outcome), result.Duration, err))
	}
	return result
}

func (c *Coordinator) runOn(ctx context.Context, sess *session.Session, sc Scenario, result *report.Result) error {
	if err := sess.Start(ctx); err != nil {
		return err
	}

	err := sc.Run(ctx, sess)
	result.Retries = sess.Browser().Retries()
	if err != nil && !errors.Is(err, ErrSkipped) {
		captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
		defer cancel()
		result.Screenshot = sess.CaptureFailure(captureCtx, fmt.Sprintf("%s-%s-%s", sc.Suite, sc.Name, result.Profile))
	}
	return err
}

// record keeps the result in memory and persists it when a store is configured.
func (c *Coordinator) record(ctx context.Context, result *report.Result) {
	c.resultsMu.Lock()
	c.results = append(c.results, result)
	c.resultsMu.Unlock()

	if c.reports == nil {
		return
	}
	if err := c.reports.Record(context.WithoutCancel(ctx), result.Clone()); err != nil {
		c.logger.Warn("Failed to persist result", "test", result.Identity(), "error", err)
	}
}

// Results returns copies of the results recorded so far, in completion order.
func (c *Coordinator) Results() []*report.Result {
	c.resultsMu.Lock()
	defer c.resultsMu.Unlock()

	out := make([]*report.Result, len(c.results))
	for i, r := range c.results {
		out[i] = r.Clone()
	}
	return out
}

// Summary aggregates the results recorded so far.
func (c *Coordinator) Summary() report.Summary {
	return report.Summarize(c.Results())
}

// WriteJUnit writes the recorded results to the configured JUnit path and
// returns that path.
func (c *Coordinator) WriteJUnit(suiteName string) (string, error) {
	path := c.cfg.JUnitPath()
	if err := junit.WriteFile(path, suiteName, c.Results()); err != nil {
		return "", err
	}
	c.logger.Info("JUnit report written", "path", path)
	return path, nil
}

// handleEvent handles events from the event bus.
func (c *Coordinator) handleEvent(e event.Event) {
	switch evt := e.(type) {
	case *event.SessionStopped:
		c.removeSession(evt.SessionID())
		c.logger.Debug("Session removed from coordinator", "session_id", evt.SessionID())
	case *event.ActionFailed:
		c.logger.Warn("Action failed", "session_id", evt.SessionID(), "op", evt.Operation, "target", evt.Target, "attempts", evt.Attempts)
	}
}
