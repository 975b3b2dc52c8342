package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/browser"
	"demoqa-e2e/infrastructure/config"
)

// BrowserController performs browser actions for a session and absorbs
// transient failures according to its retry policy.
type BrowserController struct {
	driver    browser.Driver
	policy    retry.Policy
	baseURL   string
	sessionID string
	eventBus  eventbus.EventBus
	logger    *slog.Logger

	// sleep waits d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error

	retries atomic.Int64
}

// ControllerConfig holds the dependencies of a BrowserController.
type ControllerConfig struct {
	Driver    browser.Driver
	Policy    retry.Policy
	BaseURL   string
	SessionID string
	EventBus  eventbus.EventBus
	Logger    *slog.Logger

	// Sleep replaces the timer used for delays and backoff. Nil waits for real.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewBrowserController creates a new browser controller.
func NewBrowserController(cfg *ControllerConfig) *BrowserController {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &BrowserController{
		driver:    cfg.Driver,
		policy:    cfg.Policy,
		baseURL:   cfg.BaseURL,
		sessionID: cfg.SessionID,
		eventBus:  cfg.EventBus,
		logger:    logger,
		sleep:     sleep,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy returns the retry policy in use.
func (c *BrowserController) Policy() retry.Policy {
	return c.policy
}

// Retries returns how many failed attempts were absorbed so far.
func (c *BrowserController) Retries() int {
	return int(c.retries.Load())
}

// IsRunning returns true if the browser is active.
func (c *BrowserController) IsRunning() bool {
	return c.driver.IsRunning()
}

func (c *BrowserController) ensureRunning() error {
	if !c.driver.IsRunning() {
		return browser.ErrNotRunning
	}
	return nil
}

// within runs fn with a deadline of d derived from ctx.
func within(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func (c *BrowserController) retried(op, target string, attempt, max int, err error) {
	c.retries.Add(1)
	c.logger.Warn("Attempt failed, retrying", "op", op, "target", target, "attempt", attempt, "max_attempts", max, "error", err)
	c.publish(event.NewActionRetried(c.sessionID, op, target, attempt, max, err))
}

func (c *BrowserController) failed(op, target string, attempts int, err error) {
	c.logger.Error("Action failed", "op", op, "target", target, "attempts", attempts, "error", err)
	c.publish(event.NewActionFailed(c.sessionID, op, target, attempts, err))
}

func (c *BrowserController) publish(e event.Event) {
	if c.eventBus != nil {
		c.eventBus.Publish(e)
	}
}

// fallbackWaitUntil loosens the load milestone as attempts progress.
func fallbackWaitUntil(attempt int) browser.WaitUntil {
	switch attempt {
	case 1:
		return browser.WaitLoad
	case 2:
		return browser.WaitDOMContentLoaded
	default:
		return browser.WaitCommit
	}
}

// Navigate loads url, resolved against the base URL when relative.
// Each attempt waits for DOMContentLoaded then network idle; a failed attempt
// re-issues the load with a looser milestone before backing off.
func (c *BrowserController) Navigate(ctx context.Context, url string) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	target, err := config.ResolveURL(c.baseURL, url)
	if err != nil {
		return err
	}

	s := c.policy.Navigation
	if err := c.sleep(ctx, s.InitialDelay); err != nil {
		return &NavigationError{URL: target, Err: err}
	}

	var lastErr error
	attempt := 1
	for ; attempt <= s.MaxAttempts; attempt++ {
		c.logger.Debug("Navigating", "url", target, "attempt", attempt, "max_attempts", s.MaxAttempts)

		lastErr = within(ctx, s.Timeout(attempt), func(ctx context.Context) error {
			return c.driver.Navigate(ctx, target, browser.WaitDOMContentLoaded)
		})
		if lastErr == nil {
			lastErr = within(ctx, s.IdleTimeout, func(ctx context.Context) error {
				return c.driver.WaitForLoadState(ctx, browser.WaitNetworkIdle)
			})
		}
		if lastErr == nil {
			return c.settle(ctx, s.Settle, target)
		}
		if ctx.Err() != nil || attempt == s.MaxAttempts {
			break
		}
		c.retried("navigate", target, attempt, s.MaxAttempts, lastErr)

		if err := c.sleep(ctx, s.FallbackDelayFor(attempt)); err != nil {
			break
		}
		strategy := fallbackWaitUntil(attempt)
		err := within(ctx, s.FallbackTimeoutFor(attempt), func(ctx context.Context) error {
			return c.driver.Navigate(ctx, target, strategy)
		})
		if err == nil {
			c.logger.Info("Fallback navigation succeeded", "url", target, "wait_until", strategy)
			return nil
		}
		lastErr = err

		if err := c.sleep(ctx, s.BackoffFor(attempt)); err != nil {
			break
		}
	}
	if attempt > s.MaxAttempts {
		attempt = s.MaxAttempts
	}

	c.failed("navigate", target, attempt, lastErr)
	return &NavigationError{URL: target, Attempts: attempt, Err: lastErr}
}

func (c *BrowserController) settle(ctx context.Context, d time.Duration, target string) error {
	if err := c.sleep(ctx, d); err != nil {
		return fmt.Errorf("interrupted while settling on %s: %w", target, err)
	}
	return nil
}

// WaitOptions tunes WaitForElement.
type WaitOptions struct {
	// State defaults to visible.
	State browser.ElementState
}

// fallbackState returns the looser state tried after a failed wait.
func fallbackState(s browser.ElementState) browser.ElementState {
	switch s {
	case browser.StateVisible:
		return browser.StateAttached
	case browser.StateDetached:
		return browser.StateHidden
	default:
		return s
	}
}

// WaitForElement waits until selector reaches the requested state.
func (c *BrowserController) WaitForElement(ctx context.Context, selector string, opts WaitOptions) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	state := opts.State
	if state == "" {
		state = browser.StateVisible
	}

	s := c.policy.Element
	var lastErr error
	attempt := 1
	for ; attempt <= s.MaxAttempts; attempt++ {
		lastErr = within(ctx, s.Timeout(attempt), func(ctx context.Context) error {
			return c.driver.WaitForSelector(ctx, selector, state)
		})
		if lastErr == nil && state == browser.StateVisible && s.Settle > 0 {
			lastErr = c.recheckVisible(ctx, selector, s.Settle)
		}
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == s.MaxAttempts {
			break
		}
		c.retried("wait", selector, attempt, s.MaxAttempts, lastErr)

		fb := fallbackState(state)
		err := within(ctx, s.FallbackTimeoutFor(attempt), func(ctx context.Context) error {
			return c.driver.WaitForSelector(ctx, selector, fb)
		})
		if err == nil {
			c.logger.Debug("Fallback wait succeeded", "selector", selector, "state", fb)
			return nil
		}

		if err := c.sleep(ctx, s.BackoffFor(attempt)); err != nil {
			break
		}
	}
	if attempt > s.MaxAttempts {
		attempt = s.MaxAttempts
	}

	c.failed("wait", selector, attempt, lastErr)
	return &ElementNotFoundError{Selector: selector, State: state, Attempts: attempt, Err: lastErr}
}

// recheckVisible waits d and confirms the element did not vanish meanwhile.
func (c *BrowserController) recheckVisible(ctx context.Context, selector string, d time.Duration) error {
	if err := c.sleep(ctx, d); err != nil {
		return err
	}
	visible, err := c.driver.IsVisible(ctx, selector)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("element %s became invisible", selector)
	}
	return nil
}

// Click waits for the element to be attached and clicks it. A failed click is
// retried in the same attempt with a forced click that skips hit-testing.
func (c *BrowserController) Click(ctx context.Context, selector string, opts browser.ClickOptions) error {
	if err := c.WaitForElement(ctx, selector, WaitOptions{State: browser.StateAttached}); err != nil {
		return &ClickError{Selector: selector, Err: err}
	}

	s := c.policy.Click
	var lastErr error
	attempt := 1
	for ; attempt <= s.MaxAttempts; attempt++ {
		if err := c.sleep(ctx, s.PreDelay); err != nil {
			lastErr = err
			break
		}
		lastErr = within(ctx, s.Timeout(attempt), func(ctx context.Context) error {
			return c.driver.Click(ctx, selector, opts)
		})
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || attempt == s.MaxAttempts {
			break
		}
		c.retried("click", selector, attempt, s.MaxAttempts, lastErr)

		err := within(ctx, s.Timeout(attempt), func(ctx context.Context) error {
			return c.driver.Click(ctx, selector, browser.ClickOptions{Force: true})
		})
		if err == nil {
			c.logger.Debug("Forced click succeeded", "selector", selector)
			return nil
		}
		lastErr = err

		if err := c.sleep(ctx, s.BackoffFor(attempt)); err != nil {
			break
		}
	}
	if attempt > s.MaxAttempts {
		attempt = s.MaxAttempts
	}

	c.failed("click", selector, attempt, lastErr)
	return &ClickError{Selector: selector, Attempts: attempt, Err: lastErr}
}

// Fill replaces the field value and reads it back. A mismatch is logged and
// the value set again; if it still differs the value is forced through the
// DOM with synthetic input and change events. Mismatches are never returned.
func (c *BrowserController) Fill(ctx context.Context, selector, text string) error {
	if err := c.WaitForElement(ctx, selector, WaitOptions{State: browser.StateAttached}); err != nil {
		return err
	}

	s := c.policy.Fill
	do := func(fn func(ctx context.Context) error) error {
		return within(ctx, s.Timeout(1), fn)
	}

	if err := do(func(ctx context.Context) error { return c.driver.Fill(ctx, selector, "") }); err != nil {
		return fmt.Errorf("failed to clear %s: %w", selector, err)
	}
	if err := c.sleep(ctx, s.Settle); err != nil {
		return err
	}

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		if err := do(func(ctx context.Context) error { return c.driver.Fill(ctx, selector, text) }); err != nil {
			return fmt.Errorf("failed to fill %s: %w", selector, err)
		}
		got, err := c.readBack(ctx, selector, s.Settle)
		if err != nil {
			return err
		}
		if got == text {
			return nil
		}
		mismatch := &FillVerificationError{Selector: selector, Want: text, Got: got}
		c.retries.Add(1)
		c.logger.Warn("Fill verification failed", "attempt", attempt, "error", mismatch)
		c.publish(event.NewActionRetried(c.sessionID, "fill", selector, attempt, s.MaxAttempts, mismatch))
	}

	if err := do(func(ctx context.Context) error { return c.driver.SetInputValue(ctx, selector, text) }); err != nil {
		return fmt.Errorf("failed to force value of %s: %w", selector, err)
	}
	got, err := c.readBack(ctx, selector, s.Settle)
	if err != nil {
		return err
	}
	if got != text {
		c.logger.Warn("Forced value did not stick", "error", &FillVerificationError{Selector: selector, Want: text, Got: got})
	}
	return nil
}

func (c *BrowserController) readBack(ctx context.Context, selector string, settle time.Duration) (string, error) {
	if err := c.sleep(ctx, settle); err != nil {
		return "", err
	}
	var got string
	err := within(ctx, c.policy.Fill.Timeout(1), func(ctx context.Context) error {
		var err error
		got, err = c.driver.InputValue(ctx, selector)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", selector, err)
	}
	return got, nil
}

// SetValue forces a field value through the DOM without typing.
func (c *BrowserController) SetValue(ctx context.Context, selector, value string) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	return within(ctx, c.policy.Fill.Timeout(1), func(ctx context.Context) error {
		return c.driver.SetInputValue(ctx, selector, value)
	})
}

// GetText waits for the element to be visible and returns its text content.
func (c *BrowserController) GetText(ctx context.Context, selector string) (string, error) {
	if err := c.WaitForElement(ctx, selector, WaitOptions{}); err != nil {
		return "", err
	}
	var text string
	err := within(ctx, c.policy.Element.Timeout(1), func(ctx context.Context) error {
		var err error
		text, err = c.driver.TextContent(ctx, selector)
		return err
	})
	return text, err
}

// IsVisible reports whether the element is visible. Errors count as not visible.
func (c *BrowserController) IsVisible(ctx context.Context, selector string) bool {
	if !c.driver.IsRunning() {
		return false
	}
	visible, err := c.driver.IsVisible(ctx, selector)
	if err != nil {
		c.logger.Debug("Visibility check failed", "selector", selector, "error", err)
		return false
	}
	return visible
}

// Hover waits for the element and moves the mouse over it.
func (c *BrowserController) Hover(ctx context.Context, selector string) error {
	if err := c.WaitForElement(ctx, selector, WaitOptions{}); err != nil {
		return err
	}
	return within(ctx, c.policy.Click.Timeout(1), func(ctx context.Context) error {
		return c.driver.Hover(ctx, selector)
	})
}

// SelectOption picks an option by label in a native select.
func (c *BrowserController) SelectOption(ctx context.Context, selector, label string) error {
	if err := c.WaitForElement(ctx, selector, WaitOptions{State: browser.StateAttached}); err != nil {
		return err
	}
	return within(ctx, c.policy.Click.Timeout(1), func(ctx context.Context) error {
		return c.driver.SelectOption(ctx, selector, label)
	})
}

// Press sends a key to the focused element.
func (c *BrowserController) Press(ctx context.Context, key string) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	return within(ctx, c.policy.Click.Timeout(1), func(ctx context.Context) error {
		return c.driver.Press(ctx, key)
	})
}

// Count returns the number of elements matching selector.
func (c *BrowserController) Count(ctx context.Context, selector string) (int, error) {
	if err := c.ensureRunning(); err != nil {
		return 0, err
	}
	return c.driver.Count(ctx, selector)
}

// InputValue returns the current value of a field.
func (c *BrowserController) InputValue(ctx context.Context, selector string) (string, error) {
	if err := c.ensureRunning(); err != nil {
		return "", err
	}
	return c.driver.InputValue(ctx, selector)
}

// Evaluate runs a script in the page and decodes its result into out.
func (c *BrowserController) Evaluate(ctx context.Context, expression string, out any) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	return within(ctx, c.policy.Element.Timeout(1), func(ctx context.Context) error {
		return c.driver.Evaluate(ctx, expression, out)
	})
}

// WaitForState waits once, without retries, for selector to reach state within d.
func (c *BrowserController) WaitForState(ctx context.Context, selector string, state browser.ElementState, d time.Duration) error {
	if err := c.ensureRunning(); err != nil {
		return err
	}
	return within(ctx, d, func(ctx context.Context) error {
		return c.driver.WaitForSelector(ctx, selector, state)
	})
}

// Sleep pauses for d unless ctx ends first.
func (c *BrowserController) Sleep(ctx context.Context, d time.Duration) error {
	return c.sleep(ctx, d)
}
