package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver implements Driver on top of playwright-go. It drives chromium and firefox.
type PlaywrightDriver struct {
	config *DriverConfig

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	running bool

	hooksMu  sync.RWMutex
	routes   routeTable
	onDialog DialogHandler
	routed   bool
}

// NewPlaywrightDriver creates a Playwright-based browser driver.
func NewPlaywrightDriver(config *DriverConfig) *PlaywrightDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &PlaywrightDriver{config: config}
}

func (d *PlaywrightDriver) launchArgs() []string {
	if d.config.Engine == EngineFirefox {
		return nil
	}
	var args []string
	if d.config.DisableWebSecurity {
		args = append(args, "--disable-web-security")
	}
	if d.config.HideScrollbars {
		args = append(args, "--hide-scrollbars")
	}
	if d.config.MuteAudio {
		args = append(args, "--mute-audio")
	}
	return append(args, d.config.ExtraArgs...)
}

// Start launches the configured engine and opens a page in a fresh context.
func (d *PlaywrightDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browserType := pw.Chromium
	if d.config.Engine == EngineFirefox {
		browserType = pw.Firefox
	}

	launchTimeout := d.config.LaunchTimeout
	if launchTimeout <= 0 {
		launchTimeout = DefaultDriverConfig().LaunchTimeout
	}
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.config.Headless),
		Args:     d.launchArgs(),
		Timeout:  playwright.Float(float64(launchTimeout.Milliseconds())),
	}
	if d.config.Engine == EngineFirefox && len(d.config.FirefoxPrefs) > 0 {
		launchOpts.FirefoxUserPrefs = d.config.FirefoxPrefs
	}
	browser, err := browserType.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch %s: %w", d.Engine(), err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.config.Viewport.Width,
			Height: d.config.Viewport.Height,
		},
		BypassCSP: playwright.Bool(d.config.DisableWebSecurity),
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to open page: %w", err)
	}
	page.OnDialog(d.handleDialog)

	d.pw = pw
	d.browser = browser
	d.page = page
	d.running = true
	return nil
}

// Stop closes the browser and the playwright server.
func (d *PlaywrightDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}
	d.running = false

	var firstErr error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	d.pw, d.browser, d.page = nil, nil, nil

	d.hooksMu.Lock()
	d.routed = false
	d.hooksMu.Unlock()
	return firstErr
}

// IsRunning returns true if the browser is active.
func (d *PlaywrightDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Engine reports the configured engine.
func (d *PlaywrightDriver) Engine() Engine {
	if d.config.Engine == "" {
		return EngineChromium
	}
	return d.config.Engine
}

// currentPage snapshots the page and rejects calls whose ctx is already done.
func (d *PlaywrightDriver) currentPage(ctx context.Context) (playwright.Page, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	d.mu.Lock()
	page := d.page
	running := d.running
	d.mu.Unlock()

	if !running || page == nil {
		return nil, ErrNotRunning
	}
	return page, nil
}

// await runs a playwright call that takes no timeout of its own and gives up
// when ctx ends. The abandoned call finishes in the background.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type reply struct {
		v   T
		err error
	}
	done := make(chan reply, 1)
	go func() {
		v, err := call()
		done <- reply{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// awaitErr is await for calls without a result.
func awaitErr(ctx context.Context, call func() error) error {
	_, err := await(ctx, func() (struct{}, error) { return struct{}{}, call() })
	return err
}

// timeoutMS converts the ctx deadline into a playwright timeout.
// Without a deadline the page default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

func (d *PlaywrightDriver) locator(ctx context.Context, sel string) (playwright.Locator, error) {
	page, err := d.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	return page.Locator(sel).First(), nil
}

var waitUntilStates = map[WaitUntil]*playwright.WaitUntilState{
	WaitLoad:             playwright.WaitUntilStateLoad,
	WaitDOMContentLoaded: playwright.WaitUntilStateDomcontentloaded,
	WaitNetworkIdle:      playwright.WaitUntilStateNetworkidle,
	WaitCommit:           playwright.WaitUntilStateCommit,
}

// Navigate loads url and waits for the requested milestone.
func (d *PlaywrightDriver) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}
	state, ok := waitUntilStates[waitUntil]
	if !ok {
		state = playwright.WaitUntilStateLoad
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: state,
		Timeout:   timeoutMS(ctx),
	})
	return err
}

var loadStates = map[WaitUntil]*playwright.LoadState{
	WaitLoad:             playwright.LoadStateLoad,
	WaitDOMContentLoaded: playwright.LoadStateDomcontentloaded,
	WaitNetworkIdle:      playwright.LoadStateNetworkidle,
}

// WaitForLoadState blocks until the current document reaches state.
func (d *PlaywrightDriver) WaitForLoadState(ctx context.Context, state WaitUntil) error {
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}
	ls, ok := loadStates[state]
	if !ok {
		return nil
	}
	return page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   ls,
		Timeout: timeoutMS(ctx),
	})
}

var selectorStates = map[ElementState]*playwright.WaitForSelectorState{
	StateVisible:  playwright.WaitForSelectorStateVisible,
	StateAttached: playwright.WaitForSelectorStateAttached,
	StateHidden:   playwright.WaitForSelectorStateHidden,
	StateDetached: playwright.WaitForSelectorStateDetached,
}

// WaitForSelector waits until the first match reaches state.
func (d *PlaywrightDriver) WaitForSelector(ctx context.Context, sel string, state ElementState) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	ws, ok := selectorStates[state]
	if !ok {
		ws = playwright.WaitForSelectorStateVisible
	}
	return loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   ws,
		Timeout: timeoutMS(ctx),
	})
}

// Click clicks the first match.
func (d *PlaywrightDriver) Click(ctx context.Context, sel string, opts ClickOptions) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	return loc.Click(playwright.LocatorClickOptions{
		Force:   playwright.Bool(opts.Force),
		Timeout: timeoutMS(ctx),
	})
}

// Hover moves the mouse over the first match.
func (d *PlaywrightDriver) Hover(ctx context.Context, sel string) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	return loc.Hover(playwright.LocatorHoverOptions{Timeout: timeoutMS(ctx)})
}

// Fill replaces the field value.
func (d *PlaywrightDriver) Fill(ctx context.Context, sel, text string) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	return loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMS(ctx)})
}

// SetInputValue assigns value without typing.
func (d *PlaywrightDriver) SetInputValue(ctx context.Context, sel, value string) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	_, err = loc.Evaluate(setValueJS, value, playwright.LocatorEvaluateOptions{Timeout: timeoutMS(ctx)})
	return err
}

// InputValue returns the current value of the first match.
func (d *PlaywrightDriver) InputValue(ctx context.Context, sel string) (string, error) {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return "", err
	}
	return loc.InputValue(playwright.LocatorInputValueOptions{Timeout: timeoutMS(ctx)})
}

// TextContent returns the textContent of the first match.
func (d *PlaywrightDriver) TextContent(ctx context.Context, sel string) (string, error) {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return "", err
	}
	return loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutMS(ctx)})
}

// IsVisible reports whether the first match is visible.
func (d *PlaywrightDriver) IsVisible(ctx context.Context, sel string) (bool, error) {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return false, err
	}
	return await(ctx, func() (bool, error) { return loc.IsVisible() })
}

// Count returns the number of matches.
func (d *PlaywrightDriver) Count(ctx context.Context, sel string) (int, error) {
	page, err := d.currentPage(ctx)
	if err != nil {
		return 0, err
	}
	return await(ctx, func() (int, error) { return page.Locator(sel).Count() })
}

// SelectOption picks the option labelled label.
func (d *PlaywrightDriver) SelectOption(ctx context.Context, sel, label string) error {
	loc, err := d.locator(ctx, sel)
	if err != nil {
		return err
	}
	_, err = loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{label}},
		playwright.LocatorSelectOptionOptions{Timeout: timeoutMS(ctx)})
	return err
}

// Press sends a key to the focused element.
func (d *PlaywrightDriver) Press(ctx context.Context, key string) error {
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}
	return awaitErr(ctx, func() error { return page.Keyboard().Press(key) })
}

// Evaluate runs expression and decodes the result into out through JSON.
func (d *PlaywrightDriver) Evaluate(ctx context.Context, expression string, out any) error {
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}
	result, err := await(ctx, func() (any, error) { return page.Evaluate(expression) })
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode evaluation result: %w", err)
	}
	return nil
}

// CaptureScreenshot captures a full-page PNG.
func (d *PlaywrightDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	page, err := d.currentPage(ctx)
	if err != nil {
		return nil, err
	}
	buf, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  timeoutMS(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// SetViewport sets the page viewport size.
func (d *PlaywrightDriver) SetViewport(ctx context.Context, width, height int) error {
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}
	return awaitErr(ctx, func() error { return page.SetViewportSize(width, height) })
}

// OnDialog installs the dialog handler.
func (d *PlaywrightDriver) OnDialog(handler DialogHandler) {
	d.hooksMu.Lock()
	d.onDialog = handler
	d.hooksMu.Unlock()
}

func (d *PlaywrightDriver) handleDialog(dialog playwright.Dialog) {
	d.hooksMu.RLock()
	handler := d.onDialog
	d.hooksMu.RUnlock()

	wrapped := &playwrightDialog{dialog: dialog}
	if handler == nil {
		_ = wrapped.Dismiss()
		return
	}
	handler(wrapped)
}

// Route adds an interception rule. A single catch-all page route dispatches
// every request through the rule table.
func (d *PlaywrightDriver) Route(ctx context.Context, rule RouteRule) error {
	if rule.Match == nil {
		return fmt.Errorf("route %q has no matcher", rule.Name)
	}
	page, err := d.currentPage(ctx)
	if err != nil {
		return err
	}

	d.hooksMu.Lock()
	d.routes = append(d.routes, rule)
	routed := d.routed
	d.routed = true
	d.hooksMu.Unlock()

	if routed {
		return nil
	}
	if err := page.Route("**/*", d.resolveRoute); err != nil {
		d.hooksMu.Lock()
		d.routed = false
		d.hooksMu.Unlock()
		return fmt.Errorf("failed to install request interception: %w", err)
	}
	return nil
}

func (d *PlaywrightDriver) resolveRoute(route playwright.Route) {
	url := route.Request().URL()

	d.hooksMu.RLock()
	rule, ok := d.routes.lookup(url)
	d.hooksMu.RUnlock()

	if !ok {
		_ = route.Continue()
		return
	}
	if rule.OnMatch != nil {
		rule.OnMatch(url)
	}

	switch {
	case rule.Block:
		_ = route.Abort("blockedbyclient")
	case rule.Fulfill != nil:
		status, headers, body := mockReply(route.Request().Method(), rule.Fulfill)
		_ = route.Fulfill(playwright.RouteFulfillOptions{
			Status:  playwright.Int(status),
			Headers: headers,
			Body:    string(body),
		})
	default:
		_ = route.Continue()
	}
}

// playwrightDialog adapts playwright.Dialog.
type playwrightDialog struct {
	dialog playwright.Dialog
}

func (p *playwrightDialog) Type() DialogType     { return DialogType(p.dialog.Type()) }
func (p *playwrightDialog) Message() string      { return p.dialog.Message() }
func (p *playwrightDialog) DefaultValue() string { return p.dialog.DefaultValue() }

func (p *playwrightDialog) Accept(promptText string) error {
	if p.Type() == DialogPrompt {
		return p.dialog.Accept(promptText)
	}
	return p.dialog.Accept()
}

func (p *playwrightDialog) Dismiss() error {
	return p.dialog.Dismiss()
}

// Ensure PlaywrightDriver implements Driver
var _ Driver = (*PlaywrightDriver)(nil)
