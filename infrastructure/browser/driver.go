// Package browser provides browser automation infrastructure.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotRunning is returned by driver operations issued before Start or after Stop.
var ErrNotRunning = errors.New("browser not running")

// ErrNavigationFailed is returned when the browser reports a failed load,
// such as a DNS, connection or TLS error.
var ErrNavigationFailed = errors.New("navigation failed")

// Driver defines the interface for browser automation.
// This abstraction allows for different browser implementations (ChromeDP, Playwright).
// Timeouts are carried by ctx: a call that outlives its deadline fails with the context error.
type Driver interface {
	// Start launches the browser and opens an isolated page.
	Start(ctx context.Context) error

	// Stop closes the browser and releases resources.
	Stop() error

	// IsRunning returns true if the browser is active.
	IsRunning() bool

	// Engine reports which browser engine is under automation.
	Engine() Engine

	// Navigate loads url and returns once the waitUntil milestone is reached.
	Navigate(ctx context.Context, url string, waitUntil WaitUntil) error

	// WaitForLoadState blocks until the current page reaches the given milestone.
	WaitForLoadState(ctx context.Context, state WaitUntil) error

	// WaitForSelector waits until the first element matching selector reaches state.
	WaitForSelector(ctx context.Context, selector string, state ElementState) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string, opts ClickOptions) error

	// Hover moves the mouse over the center of the element.
	Hover(ctx context.Context, selector string) error

	// Fill replaces the value of an input or textarea.
	Fill(ctx context.Context, selector, text string) error

	// SetInputValue assigns the value directly through the DOM and dispatches
	// input and change events. It does not type.
	SetInputValue(ctx context.Context, selector, value string) error

	// InputValue returns the current value of an input, textarea or select.
	InputValue(ctx context.Context, selector string) (string, error)

	// TextContent returns the text content of the element.
	TextContent(ctx context.Context, selector string) (string, error)

	// IsVisible reports whether the element exists and is visible.
	IsVisible(ctx context.Context, selector string) (bool, error)

	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)

	// SelectOption selects the option with the given label in a native select element.
	SelectOption(ctx context.Context, selector, label string) error

	// Press sends a key press (e.g. "Escape") to the focused element.
	Press(ctx context.Context, key string) error

	// Evaluate runs a JavaScript expression, awaiting promises, and decodes the
	// result into out. out may be nil.
	Evaluate(ctx context.Context, expression string, out any) error

	// CaptureScreenshot captures a full-page PNG screenshot.
	CaptureScreenshot(ctx context.Context) ([]byte, error)

	// SetViewport sets the browser viewport size.
	SetViewport(ctx context.Context, width, height int) error

	// OnDialog registers the handler that receives every native dialog.
	// Only one handler is kept; a later call replaces the former.
	OnDialog(handler DialogHandler)

	// Route registers a network interception rule. Rules registered later take precedence.
	Route(ctx context.Context, rule RouteRule) error
}

// Engine identifies a browser implementation.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
)

// IsSlow reports whether the engine needs the larger timing budget.
func (e Engine) IsSlow() bool {
	return e == EngineFirefox
}

// ParseEngine parses an engine name.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(s))) {
	case EngineChromium:
		return EngineChromium, nil
	case EngineFirefox:
		return EngineFirefox, nil
	default:
		return "", fmt.Errorf("unknown browser engine %q", s)
	}
}

// WaitUntil is a page load milestone.
type WaitUntil string

const (
	WaitLoad             WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle      WaitUntil = "networkidle"
	WaitCommit           WaitUntil = "commit"
)

// ElementState is the condition WaitForSelector waits for.
type ElementState string

const (
	StateVisible  ElementState = "visible"
	StateAttached ElementState = "attached"
	StateHidden   ElementState = "hidden"
	StateDetached ElementState = "detached"
)

// ClickOptions tunes a click.
type ClickOptions struct {
	// Force skips actionability checks and dispatches the click directly on the element.
	Force bool
}

// DialogType is the kind of a native dialog.
type DialogType string

const (
	DialogAlert        DialogType = "alert"
	DialogConfirm      DialogType = "confirm"
	DialogPrompt       DialogType = "prompt"
	DialogBeforeUnload DialogType = "beforeunload"
)

// Dialog is a native browser dialog intercepted by the driver.
type Dialog interface {
	Type() DialogType
	Message() string
	DefaultValue() string
	// Accept closes the dialog positively; promptText is used by prompt dialogs.
	Accept(promptText string) error
	Dismiss() error
}

// DialogHandler receives dialogs. It must eventually Accept or Dismiss the dialog.
type DialogHandler func(d Dialog)

// URLMatcher decides whether a request URL is covered by a route rule.
type URLMatcher func(url string) bool

// MatchExact matches one URL exactly.
func MatchExact(target string) URLMatcher {
	return func(url string) bool { return url == target }
}

// MatchAnySubstring matches URLs containing any of the given fragments.
func MatchAnySubstring(fragments ...string) URLMatcher {
	return func(url string) bool {
		for _, f := range fragments {
			if f != "" && strings.Contains(url, f) {
				return true
			}
		}
		return false
	}
}

// MockResponse is a canned response served for an intercepted request.
type MockResponse struct {
	Status      int
	ContentType string
	Body        []byte
	Headers     map[string]string
}

// mockHeaders returns the response headers of resp, filling in the content type
// and a permissive CORS origin so cross-origin callers can read the body.
func mockHeaders(resp *MockResponse) map[string]string {
	headers := make(map[string]string, len(resp.Headers)+2)
	for name, value := range resp.Headers {
		headers[name] = value
	}
	if _, ok := headers["Content-Type"]; !ok && resp.ContentType != "" {
		headers["Content-Type"] = resp.ContentType
	}
	if _, ok := headers["Access-Control-Allow-Origin"]; !ok {
		headers["Access-Control-Allow-Origin"] = "*"
	}
	return headers
}

// mockReply returns what to serve for a request to a mocked URL. CORS
// preflights get an empty 204 that allows the actual request through.
func mockReply(method string, resp *MockResponse) (int, map[string]string, []byte) {
	headers := mockHeaders(resp)
	if method == http.MethodOptions {
		headers["Access-Control-Allow-Methods"] = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
		headers["Access-Control-Allow-Headers"] = "Authorization, Content-Type"
		delete(headers, "Content-Type")
		return http.StatusNoContent, headers, nil
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	return status, headers, resp.Body
}

// RouteRule intercepts requests whose URL matches. Exactly one of Block or Fulfill applies.
type RouteRule struct {
	Name    string
	Match   URLMatcher
	Block   bool
	Fulfill *MockResponse
	// OnMatch is called with the URL of every intercepted request.
	OnMatch func(url string)
}

// routeTable holds the rules of one driver. Callers guard it with the driver mutex.
type routeTable []RouteRule

// lookup returns the most recently registered rule matching url.
func (t routeTable) lookup(url string) (RouteRule, bool) {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Match != nil && t[i].Match(url) {
			return t[i], true
		}
	}
	return RouteRule{}, false
}

// Viewport is a width/height pair in CSS pixels.
type Viewport struct {
	Width  int
	Height int
}

// DriverConfig holds configuration for browser drivers.
type DriverConfig struct {
	// Engine selects the browser engine. ChromeDP only supports chromium.
	Engine Engine

	// Headless runs the browser without a visible window.
	Headless bool

	// Viewport is the page viewport.
	Viewport Viewport

	// MuteAudio mutes browser audio.
	MuteAudio bool

	// HideScrollbars hides scrollbars.
	HideScrollbars bool

	// DisableWebSecurity disables web security (allows cross-origin).
	DisableWebSecurity bool

	// ExtraArgs are passed to the browser binary verbatim ("--flag" or "--flag=value").
	ExtraArgs []string

	// FirefoxPrefs are about:config preferences applied to Firefox launches.
	FirefoxPrefs map[string]any

	// LaunchTimeout bounds browser startup.
	LaunchTimeout time.Duration

	// UserDataDir specifies a custom user data directory.
	UserDataDir string
}

// DefaultDriverConfig returns default browser configuration.
func DefaultDriverConfig() *DriverConfig {
	return &DriverConfig{
		Engine:             EngineChromium,
		Headless:           true,
		Viewport:           Viewport{Width: 1920, Height: 1080},
		MuteAudio:          true,
		HideScrollbars:     true,
		DisableWebSecurity: true,
		LaunchTimeout:      60 * time.Second,
	}
}
