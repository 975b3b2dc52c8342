// Package session owns one isolated browser per test: its lifecycle, the
// resilient action layer, dialog routing and failure screenshots.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/core/state"
	"demoqa-e2e/domain/profile"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/browser"
)

// Session is a single browser session used by one test.
// Actions on a session are sequential; driver callbacks only touch guarded state.
type Session struct {
	// Identity
	id      string
	profile *profile.Profile

	// State
	state   state.SessionState
	stateMu sync.RWMutex

	// Components
	browserCtrl *BrowserController
	dialogs     *DialogWaiter
	screenCap   *ScreenCapture

	// Dependencies
	driver    browser.Driver
	eventBus  eventbus.EventBus
	adBlock   []string
	warmupURL string
	logger    *slog.Logger
}

// Config holds configuration for creating a new Session.
type Config struct {
	// ID defaults to a random UUID.
	ID       string
	Profile  *profile.Profile
	Driver   browser.Driver
	Policy   retry.Policy
	BaseURL  string
	EventBus eventbus.EventBus
	Logger   *slog.Logger

	// AdBlock lists URL fragments whose requests are aborted.
	AdBlock []string
	// ScreenshotDir receives failure screenshots.
	ScreenshotDir string
	// WarmupURL is loaded while preparing when set.
	WarmupURL string
	// Sleep replaces the controller's timer; see ControllerConfig.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Session.
func New(cfg *Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	logger := cfg.Logger.With("session_id", cfg.ID)
	if cfg.Profile != nil {
		logger = logger.With("profile", cfg.Profile.Name)
	}

	s := &Session{
		id:        cfg.ID,
		profile:   cfg.Profile,
		state:     state.StateIdle,
		driver:    cfg.Driver,
		eventBus:  cfg.EventBus,
		adBlock:   cfg.AdBlock,
		warmupURL: cfg.WarmupURL,
		logger:    logger,
	}

	s.browserCtrl = NewBrowserController(&ControllerConfig{
		Driver:    cfg.Driver,
		Policy:    cfg.Policy,
		BaseURL:   cfg.BaseURL,
		SessionID: cfg.ID,
		EventBus:  cfg.EventBus,
		Logger:    logger,
		Sleep:     cfg.Sleep,
	})
	s.dialogs = NewDialogWaiter(cfg.ID, cfg.EventBus, logger)
	s.screenCap = NewScreenCapture(cfg.Driver, cfg.ScreenshotDir, logger)

	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Profile returns the browser profile of the session.
func (s *Session) Profile() *profile.Profile {
	return s.profile
}

// State returns the current session state.
func (s *Session) State() state.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Logger returns the session-scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Browser returns the resilient action layer.
func (s *Session) Browser() *BrowserController {
	return s.browserCtrl
}

// Dialogs returns the dialog waiter.
func (s *Session) Dialogs() *DialogWaiter {
	return s.dialogs
}

// Screens returns the screenshot service.
func (s *Session) Screens() *ScreenCapture {
	return s.screenCap
}

// Start launches the browser and prepares the page. On failure the browser
// is stopped and the session ends in Stopped.
func (s *Session) Start(ctx context.Context) error {
	if err := s.transitionTo(state.StateStarting); err != nil {
		return err
	}

	if err := s.driver.Start(ctx); err != nil {
		s.transitionTo(state.StateStopped)
		s.publishEvent(event.NewSessionStopped(s.id, err))
		return fmt.Errorf("failed to start browser: %w", err)
	}

	if err := s.transitionTo(state.StatePreparing); err != nil {
		return err
	}
	engine := s.driver.Engine()
	profileName := ""
	if s.profile != nil {
		profileName = s.profile.Name
	}
	s.publishEvent(event.NewSessionStarted(s.id, profileName, string(engine)))

	if err := s.prepare(ctx); err != nil {
		s.abort(err)
		return err
	}

	return s.transitionTo(state.StateReady)
}

// prepare installs the page hooks and runs the warm-up navigation.
func (s *Session) prepare(ctx context.Context) error {
	s.driver.OnDialog(s.dialogs.Handle)

	if len(s.adBlock) > 0 {
		err := s.driver.Route(ctx, browser.RouteRule{
			Name:  "adblock",
			Match: browser.MatchAnySubstring(s.adBlock...),
			Block: true,
			OnMatch: func(url string) {
				s.publishEvent(event.NewRequestBlocked(s.id, url, "adblock"))
			},
		})
		if err != nil {
			return fmt.Errorf("failed to install ad blocking: %w", err)
		}
	}

	if s.warmupURL != "" {
		s.logger.Info("Warming up", "url", s.warmupURL)
		if err := s.browserCtrl.Navigate(ctx, s.warmupURL); err != nil {
			return fmt.Errorf("warm-up failed: %w", err)
		}
	}
	return nil
}

func (s *Session) abort(cause error) {
	if err := s.driver.Stop(); err != nil {
		s.logger.Error("Failed to stop browser", "error", err)
	}
	s.transitionTo(state.StateStopped)
	s.publishEvent(event.NewSessionStopped(s.id, cause))
}

// Stop closes the browser. Stopping an idle or stopped session is a no-op.
func (s *Session) Stop() error {
	if st := s.State(); st == state.StateIdle || st.ShuttingDown() {
		return nil
	}

	if err := s.transitionTo(state.StateStopping); err != nil {
		return err
	}

	var stopErr error
	if s.driver.IsRunning() {
		if err := s.driver.Stop(); err != nil {
			s.logger.Error("Failed to stop browser", "error", err)
			stopErr = fmt.Errorf("failed to stop browser: %w", err)
		}
	}

	s.transitionTo(state.StateStopped)
	s.publishEvent(event.NewSessionStopped(s.id, stopErr))
	return stopErr
}

// Route installs an extra interception rule, e.g. a mocked API response.
// Rules added later win over the ad blocker.
func (s *Session) Route(ctx context.Context, rule browser.RouteRule) error {
	if !s.State().CanAcceptOperations() {
		return fmt.Errorf("cannot add route in state %s", s.State())
	}
	return s.driver.Route(ctx, rule)
}

// CaptureFailure saves a screenshot named after the failing test.
// Errors are logged; the returned path is empty when nothing was saved.
func (s *Session) CaptureFailure(ctx context.Context, name string) string {
	if !s.State().CanAcceptOperations() {
		return ""
	}
	path, err := s.screenCap.CaptureAndSave(ctx, name)
	if err != nil {
		s.logger.Warn("Failed to capture failure screenshot", "test", name, "error", err)
		return ""
	}
	s.publishEvent(event.NewScreenshotSaved(s.id, path, "failure"))
	return path
}

// State transition helpers

func (s *Session) transitionTo(newState state.SessionState) error {
	s.stateMu.Lock()
	oldState := s.state

	if !oldState.CanTransitionTo(newState) {
		s.stateMu.Unlock()
		return state.NewTransitionError(oldState, newState)
	}

	s.state = newState
	s.stateMu.Unlock()

	s.publishEvent(event.NewSessionStateChanged(s.id, oldState, newState))
	s.logger.Debug("State changed", "from", oldState, "to", newState)

	return nil
}

func (s *Session) publishEvent(e event.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(e)
	}
}
