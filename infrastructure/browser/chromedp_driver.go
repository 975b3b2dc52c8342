package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	pollInterval      = 100 * time.Millisecond
	dialogReplyBudget = 10 * time.Second
	errorPagePrefix   = "chrome-error://"
)

// ChromeDPDriver implements Driver using chromedp. It drives chromium only.
type ChromeDPDriver struct {
	config      *DriverConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.Mutex
	running     bool

	// hooks is guarded separately from mu: the target listener must never wait
	// on a lock held across a browser round trip.
	hooksMu      sync.RWMutex
	routes       routeTable
	onDialog     DialogHandler
	fetchEnabled bool

	life lifecycle
}

// milestones records how far one document has loaded.
type milestones struct {
	committed bool
	domReady  bool
	loaded    bool
	idle      bool
	errorPage bool
}

// lifecycle tracks main-frame documents by loader ID, so a navigation waits
// for its own document and never for the one it replaces.
type lifecycle struct {
	mu        sync.Mutex
	mainFrame cdp.FrameID
	current   cdp.LoaderID
	docs      map[cdp.LoaderID]*milestones
}

func (l *lifecycle) reset() {
	l.mu.Lock()
	l.docs = nil
	l.mu.Unlock()
}

// doc returns the entry of loader, creating it. Callers hold mu.
func (l *lifecycle) doc(loader cdp.LoaderID) *milestones {
	if l.docs == nil {
		l.docs = make(map[cdp.LoaderID]*milestones)
	}
	m, ok := l.docs[loader]
	if !ok {
		m = &milestones{}
		l.docs[loader] = m
	}
	return m
}

func (l *lifecycle) isIdle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.docs[l.current]
	return ok && m.idle
}

// reached reports whether the document of loader got to until. A committed
// browser error page fails with ErrNavigationFailed.
func (l *lifecycle) reached(loader cdp.LoaderID, until WaitUntil) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.docs[loader]
	if !ok {
		return false, nil
	}
	if m.errorPage {
		return false, fmt.Errorf("%w: browser error page committed", ErrNavigationFailed)
	}
	switch until {
	case WaitCommit:
		return m.committed, nil
	case WaitDOMContentLoaded:
		return m.domReady, nil
	case WaitNetworkIdle:
		return m.idle, nil
	default:
		return m.loaded, nil
	}
}

func (l *lifecycle) observe(ev any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		l.mainFrame = e.Frame.ID
		l.current = e.Frame.LoaderID
		m := l.doc(e.Frame.LoaderID)
		m.committed = true
		m.errorPage = strings.HasPrefix(e.Frame.URL, errorPagePrefix)
	case *page.EventLifecycleEvent:
		if l.mainFrame != "" && e.FrameID != l.mainFrame {
			return
		}
		m := l.doc(e.LoaderID)
		switch e.Name {
		case "init":
			m.domReady, m.loaded, m.idle = false, false, false
		case "DOMContentLoaded":
			m.domReady = true
		case "load":
			m.loaded = true
		case "networkIdle":
			m.idle = true
		}
	}
}

// navigateResult checks the reply of Page.navigate. An empty loader ID means
// a same-document navigation, which has nothing left to wait for.
func navigateResult(url string, res *page.NavigateReturns) (cdp.LoaderID, error) {
	if res.ErrorText != "" {
		return "", fmt.Errorf("%w: %s at %s", ErrNavigationFailed, res.ErrorText, url)
	}
	return res.LoaderID, nil
}

// NewChromeDPDriver creates a new ChromeDP-based browser driver.
func NewChromeDPDriver(config *DriverConfig) *ChromeDPDriver {
	if config == nil {
		config = DefaultDriverConfig()
	}
	return &ChromeDPDriver{
		config: config,
	}
}

// buildExecAllocatorOptions builds chromedp options from config.
func (d *ChromeDPDriver) buildExecAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.config.Headless),
		chromedp.Flag("hide-scrollbars", d.config.HideScrollbars),
		chromedp.Flag("mute-audio", d.config.MuteAudio),
		chromedp.Flag("disable-web-security", d.config.DisableWebSecurity),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(d.config.Viewport.Width, d.config.Viewport.Height),
	)

	for _, arg := range d.config.ExtraArgs {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	if d.config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(d.config.UserDataDir))
	}

	return opts
}

// Start launches chromium and prepares the first tab.
func (d *ChromeDPDriver) Start(ctx context.Context) error {
	if d.config.Engine != "" && d.config.Engine != EngineChromium {
		return fmt.Errorf("chromedp cannot drive %s", d.config.Engine)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("browser already running")
	}

	// Create allocator context from context.Background() to ensure browser lifecycle
	// is independent of the caller's context
	d.allocCtx, d.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		d.buildExecAllocatorOptions()...,
	)
	d.ctx, d.cancel = chromedp.NewContext(d.allocCtx)
	chromedp.ListenTarget(d.ctx, d.handleTargetEvent)

	// The first Run allocates the browser, so it must use the browser context
	// itself; a derived timeout would close the tab when it expires.
	browserCtx := d.ctx
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx,
			page.SetLifecycleEventsEnabled(true),
			chromedp.EmulateViewport(int64(d.config.Viewport.Width), int64(d.config.Viewport.Height)),
		)
	}()

	timeout := d.config.LaunchTimeout
	if timeout <= 0 {
		timeout = DefaultDriverConfig().LaunchTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = fmt.Errorf("launch timed out after %s", timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		d.cleanup()
		return fmt.Errorf("failed to start chromium: %w", err)
	}

	d.running = true
	return nil
}

// Stop closes the browser and releases resources.
func (d *ChromeDPDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.cleanup()
	return nil
}

func (d *ChromeDPDriver) cleanup() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.allocCancel != nil {
		d.allocCancel()
		d.allocCancel = nil
	}
	d.ctx = nil
	d.allocCtx = nil

	d.hooksMu.Lock()
	d.fetchEnabled = false
	d.hooksMu.Unlock()
}

// IsRunning returns true if the browser is active.
func (d *ChromeDPDriver) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Engine reports chromium.
func (d *ChromeDPDriver) Engine() Engine {
	return EngineChromium
}

func (d *ChromeDPDriver) browserContext() (context.Context, error) {
	d.mu.Lock()
	browserCtx := d.ctx
	running := d.running
	d.mu.Unlock()

	if !running || browserCtx == nil {
		return nil, ErrNotRunning
	}
	return browserCtx, nil
}

// run executes actions on the browser while honouring ctx.
// The ctx parameter is used for timeout/cancellation - if it has a deadline,
// we create a derived context from browserCtx with that deadline.
func (d *ChromeDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	browserCtx, err := d.browserContext()
	if err != nil {
		return err
	}

	execCtx, cancel := context.WithCancel(browserCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) <= 0 {
			return context.DeadlineExceeded
		}
		var cancelDeadline context.CancelFunc
		execCtx, cancelDeadline = context.WithDeadline(execCtx, deadline)
		defer cancelDeadline()
	}

	// Run in a goroutine so we can also monitor the provided context for cancellation
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(execCtx, actions...)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runDetached executes actions outside any caller context, e.g. from event callbacks.
func (d *ChromeDPDriver) runDetached(budget time.Duration, actions ...chromedp.Action) error {
	browserCtx, err := d.browserContext()
	if err != nil {
		return err
	}
	execCtx, cancel := context.WithTimeout(browserCtx, budget)
	defer cancel()
	return chromedp.Run(execCtx, actions...)
}

// poll evaluates a boolean expression until it holds or ctx ends.
// Evaluation errors are retried: the page may be mid-navigation.
func (d *ChromeDPDriver) poll(ctx context.Context, expression string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var ok bool
		err := d.run(ctx, chromedp.Evaluate(expression, &ok))
		if err == nil && ok {
			return nil
		}
		if errors.Is(err, ErrNotRunning) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Navigate loads url and waits for the requested milestone of the new document.
func (d *ChromeDPDriver) Navigate(ctx context.Context, url string, waitUntil WaitUntil) error {
	d.life.reset()

	var res page.NavigateReturns
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res)
	}))
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	loader, err := navigateResult(url, &res)
	if err != nil || loader == "" {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		ok, err := d.life.reached(loader, waitUntil)
		if err != nil {
			return fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForLoadState blocks until the current document reaches state.
func (d *ChromeDPDriver) WaitForLoadState(ctx context.Context, state WaitUntil) error {
	switch state {
	case WaitCommit:
		_, err := d.browserContext()
		return err
	case WaitDOMContentLoaded:
		return d.poll(ctx, "document.readyState !== 'loading'")
	case WaitNetworkIdle:
		if _, err := d.browserContext(); err != nil {
			return err
		}
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for !d.life.isIdle() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
		return nil
	default:
		return d.poll(ctx, "document.readyState === 'complete'")
	}
}

// WaitForSelector waits until the first match reaches state.
func (d *ChromeDPDriver) WaitForSelector(ctx context.Context, sel string, state ElementState) error {
	s := parseSelector(sel)
	switch state {
	case StateVisible:
		return d.run(ctx, chromedp.WaitVisible(s.expr, s.queryOption()))
	case StateAttached:
		return d.run(ctx, chromedp.WaitReady(s.expr, s.queryOption()))
	case StateDetached:
		return d.run(ctx, chromedp.WaitNotPresent(s.expr, s.queryOption()))
	default:
		// WaitNotVisible needs the node to exist; hidden also covers absence.
		return d.poll(ctx, s.stateJS(state))
	}
}

// Click clicks the first match. A forced click dispatches a DOM click
// without waiting for visibility or hit-testing.
func (d *ChromeDPDriver) Click(ctx context.Context, sel string, opts ClickOptions) error {
	s := parseSelector(sel)
	if opts.Force {
		return d.run(ctx, chromedp.Evaluate(s.withElement("el.click();"), nil))
	}
	return d.run(ctx, chromedp.Click(s.expr, s.queryOption()))
}

// Hover moves the mouse to the center of the element.
func (d *ChromeDPDriver) Hover(ctx context.Context, sel string) error {
	s := parseSelector(sel)
	var center struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	script := s.withElement("el.scrollIntoView({ block: 'center', inline: 'center' });" +
		" const r = el.getBoundingClientRect(); return { x: r.left + r.width / 2, y: r.top + r.height / 2 };")

	return d.run(ctx,
		chromedp.WaitVisible(s.expr, s.queryOption()),
		chromedp.Evaluate(script, &center),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return chromedp.MouseEvent(input.MouseMoved, center.X, center.Y).Do(ctx)
		}),
	)
}

// Fill clears the field and types text into it.
func (d *ChromeDPDriver) Fill(ctx context.Context, sel, text string) error {
	s := parseSelector(sel)
	actions := []chromedp.Action{
		chromedp.WaitVisible(s.expr, s.queryOption()),
		chromedp.Evaluate(s.withElement("el.focus(); ("+setValueJS+")(el, '');"), nil),
	}
	if text != "" {
		actions = append(actions, chromedp.SendKeys(s.expr, text, s.queryOption()))
	}
	return d.run(ctx, actions...)
}

// SetInputValue assigns value without typing.
func (d *ChromeDPDriver) SetInputValue(ctx context.Context, sel, value string) error {
	s := parseSelector(sel)
	return d.run(ctx, chromedp.Evaluate(s.withElement("("+setValueJS+")(el, "+jsString(value)+");"), nil))
}

// InputValue returns the element's value property.
func (d *ChromeDPDriver) InputValue(ctx context.Context, sel string) (string, error) {
	s := parseSelector(sel)
	var value string
	if err := d.run(ctx, chromedp.Evaluate(s.withElement("return String(el.value ?? '');"), &value)); err != nil {
		return "", err
	}
	return value, nil
}

// TextContent returns the element's textContent.
func (d *ChromeDPDriver) TextContent(ctx context.Context, sel string) (string, error) {
	s := parseSelector(sel)
	var text string
	if err := d.run(ctx, chromedp.Evaluate(s.withElement("return el.textContent ?? '';"), &text)); err != nil {
		return "", err
	}
	return text, nil
}

// IsVisible reports whether the first match is visible. A missing element is not visible.
func (d *ChromeDPDriver) IsVisible(ctx context.Context, sel string) (bool, error) {
	var visible bool
	if err := d.run(ctx, chromedp.Evaluate(parseSelector(sel).stateJS(StateVisible), &visible)); err != nil {
		return false, err
	}
	return visible, nil
}

// Count returns the number of matches.
func (d *ChromeDPDriver) Count(ctx context.Context, sel string) (int, error) {
	var n int
	if err := d.run(ctx, chromedp.Evaluate(parseSelector(sel).allJS()+".length", &n)); err != nil {
		return 0, err
	}
	return n, nil
}

// SelectOption picks the option labelled label in a native select.
func (d *ChromeDPDriver) SelectOption(ctx context.Context, sel, label string) error {
	s := parseSelector(sel)
	return d.run(ctx,
		chromedp.WaitReady(s.expr, s.queryOption()),
		chromedp.Evaluate(s.withElement("("+selectByLabelJS+")(el, "+jsString(label)+");"), nil),
	)
}

// namedKeys maps key names to chromedp key sequences.
var namedKeys = map[string]string{
	"Escape":    kb.Escape,
	"Enter":     kb.Enter,
	"Tab":       kb.Tab,
	"Backspace": kb.Backspace,
	"ArrowDown": kb.ArrowDown,
	"ArrowUp":   kb.ArrowUp,
}

// Press sends a key to the focused element.
func (d *ChromeDPDriver) Press(ctx context.Context, key string) error {
	if k, ok := namedKeys[key]; ok {
		key = k
	}
	return d.run(ctx, chromedp.KeyEvent(key))
}

// Evaluate runs expression, awaiting a returned promise.
func (d *ChromeDPDriver) Evaluate(ctx context.Context, expression string, out any) error {
	return d.run(ctx, chromedp.Evaluate(expression, out,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	))
}

// CaptureScreenshot captures a full-page PNG.
func (d *ChromeDPDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// SetViewport sets the browser viewport size.
func (d *ChromeDPDriver) SetViewport(ctx context.Context, width, height int) error {
	return d.run(ctx, chromedp.EmulateViewport(int64(width), int64(height)))
}

// OnDialog installs the dialog handler.
func (d *ChromeDPDriver) OnDialog(handler DialogHandler) {
	d.hooksMu.Lock()
	d.onDialog = handler
	d.hooksMu.Unlock()
}

// Route adds an interception rule, enabling the Fetch domain on first use.
func (d *ChromeDPDriver) Route(ctx context.Context, rule RouteRule) error {
	if rule.Match == nil {
		return fmt.Errorf("route %q has no matcher", rule.Name)
	}

	d.hooksMu.Lock()
	d.routes = append(d.routes, rule)
	enabled := d.fetchEnabled
	d.hooksMu.Unlock()

	if enabled {
		return nil
	}
	if err := d.run(ctx, fetch.Enable()); err != nil {
		return fmt.Errorf("failed to enable request interception: %w", err)
	}

	d.hooksMu.Lock()
	d.fetchEnabled = true
	d.hooksMu.Unlock()
	return nil
}

// handleTargetEvent runs on the chromedp event goroutine and must not block.
func (d *ChromeDPDriver) handleTargetEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated, *page.EventLifecycleEvent:
		d.life.observe(e)
	case *page.EventJavascriptDialogOpening:
		d.hooksMu.RLock()
		handler := d.onDialog
		d.hooksMu.RUnlock()

		dlg := &chromedpDialog{
			driver:       d,
			typ:          DialogType(e.Type),
			message:      e.Message,
			defaultValue: e.DefaultPrompt,
		}
		go func() {
			if handler == nil {
				_ = dlg.Dismiss()
				return
			}
			handler(dlg)
		}()
	case *fetch.EventRequestPaused:
		go d.resolveRequest(e)
	}
}

func (d *ChromeDPDriver) resolveRequest(e *fetch.EventRequestPaused) {
	url := ""
	if e.Request != nil {
		url = e.Request.URL
	}

	d.hooksMu.RLock()
	rule, ok := d.routes.lookup(url)
	d.hooksMu.RUnlock()

	if !ok {
		_ = d.runDetached(dialogReplyBudget, fetch.ContinueRequest(e.RequestID))
		return
	}
	if rule.OnMatch != nil {
		rule.OnMatch(url)
	}

	switch {
	case rule.Block:
		_ = d.runDetached(dialogReplyBudget, fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient))
	case rule.Fulfill != nil:
		method := ""
		if e.Request != nil {
			method = e.Request.Method
		}
		status, mocked, body := mockReply(method, rule.Fulfill)
		headers := make([]*fetch.HeaderEntry, 0, len(mocked))
		for name, value := range mocked {
			headers = append(headers, &fetch.HeaderEntry{Name: name, Value: value})
		}
		fulfill := fetch.FulfillRequest(e.RequestID, int64(status)).WithResponseHeaders(headers)
		if len(body) > 0 {
			fulfill = fulfill.WithBody(base64.StdEncoding.EncodeToString(body))
		}
		_ = d.runDetached(dialogReplyBudget, fulfill)
	default:
		_ = d.runDetached(dialogReplyBudget, fetch.ContinueRequest(e.RequestID))
	}
}

// chromedpDialog answers a JavaScript dialog at most once.
type chromedpDialog struct {
	driver       *ChromeDPDriver
	typ          DialogType
	message      string
	defaultValue string

	mu      sync.Mutex
	handled bool
}

func (dlg *chromedpDialog) Type() DialogType     { return dlg.typ }
func (dlg *chromedpDialog) Message() string      { return dlg.message }
func (dlg *chromedpDialog) DefaultValue() string { return dlg.defaultValue }

func (dlg *chromedpDialog) Accept(promptText string) error {
	return dlg.reply(true, promptText)
}

func (dlg *chromedpDialog) Dismiss() error {
	return dlg.reply(false, "")
}

func (dlg *chromedpDialog) reply(accept bool, promptText string) error {
	dlg.mu.Lock()
	defer dlg.mu.Unlock()
	if dlg.handled {
		return fmt.Errorf("dialog %q already handled", dlg.message)
	}
	dlg.handled = true

	action := page.HandleJavaScriptDialog(accept)
	if accept && dlg.typ == DialogPrompt {
		action = action.WithPromptText(promptText)
	}
	return dlg.driver.runDetached(dialogReplyBudget, action)
}

// Ensure ChromeDPDriver implements Driver
var _ Driver = (*ChromeDPDriver)(nil)
