// Package browsertest provides an in-memory browser.Driver for unit tests.
//
// A FakeDriver holds a flat map from selector to element. Tests seed the
// elements a page would render and attach hooks that mutate them when
// clicked, which is enough to drive page objects without a real browser.
package browsertest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"slices"
	"strings"
	"sync"
	"time"

	"demoqa-e2e/infrastructure/browser"
)

// Element is the fake state of one DOM element.
type Element struct {
	Text    string
	Value   string
	Visible bool
	// Options lists the labels of a native select.
	Options []string
}

// Call records one driver invocation.
type Call struct {
	Op       string
	Selector string
	Arg      string
}

// FakeDriver is a scriptable browser.Driver. Its zero value is not usable;
// create one with New.
type FakeDriver struct {
	mu sync.Mutex

	engine   browser.Engine
	running  bool
	url      string
	viewport browser.Viewport
	elements map[string]*Element
	routes   []browser.RouteRule
	dialog   browser.DialogHandler
	calls    []Call

	// StartErr is returned by Start.
	StartErr error
	// NavigateFunc overrides navigation. Returning nil records the URL.
	NavigateFunc func(ctx context.Context, url string, waitUntil browser.WaitUntil) error
	// LoadStateFunc overrides WaitForLoadState.
	LoadStateFunc func(ctx context.Context, state browser.WaitUntil) error
	// ClickFunc overrides clicks before the element hooks run.
	ClickFunc func(ctx context.Context, selector string, opts browser.ClickOptions) error
	// FillFunc maps the text typed into selector to the value that sticks.
	FillFunc func(selector, text string) string
	// EvaluateFunc answers Evaluate. The result is JSON-encoded into out.
	EvaluateFunc func(expression string) (any, error)
	// Screenshot is returned by CaptureScreenshot; a 1x1 PNG when nil.
	Screenshot []byte

	onClick  map[string][]func(f *FakeDriver)
	onHover  map[string][]func(f *FakeDriver)
	onSelect map[string][]func(f *FakeDriver, label string)

	// PollInterval is how often WaitForSelector re-checks the elements.
	PollInterval time.Duration
}

// New returns a stopped fake driver for engine.
func New(engine browser.Engine) *FakeDriver {
	if engine == "" {
		engine = browser.EngineChromium
	}
	return &FakeDriver{
		engine:       engine,
		elements:     make(map[string]*Element),
		onClick:      make(map[string][]func(f *FakeDriver)),
		onHover:      make(map[string][]func(f *FakeDriver)),
		onSelect:     make(map[string][]func(f *FakeDriver, label string)),
		PollInterval: time.Millisecond,
	}
}

// Running returns a started fake driver.
func Running(engine browser.Engine) *FakeDriver {
	f := New(engine)
	f.running = true
	return f
}

// Put seeds or replaces the element matching selector.
func (f *FakeDriver) Put(selector string, el Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := el
	f.elements[selector] = &e
}

// Show seeds a visible element with text.
func (f *FakeDriver) Show(selector, text string) {
	f.Put(selector, Element{Text: text, Visible: true})
}

// Remove detaches the element matching selector.
func (f *FakeDriver) Remove(selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, selector)
}

// Element returns a copy of the element matching selector.
func (f *FakeDriver) Element(selector string) (Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.elements[selector]
	if !ok {
		return Element{}, false
	}
	return *e, true
}

// OnClick registers fn to run after every successful click on selector.
func (f *FakeDriver) OnClick(selector string, fn func(f *FakeDriver)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClick[selector] = append(f.onClick[selector], fn)
}

// OnHover registers fn to run after every hover on selector.
func (f *FakeDriver) OnHover(selector string, fn func(f *FakeDriver)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onHover[selector] = append(f.onHover[selector], fn)
}

// OnSelect registers fn to run after every successful option selection on selector.
func (f *FakeDriver) OnSelect(selector string, fn func(f *FakeDriver, label string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSelect[selector] = append(f.onSelect[selector], fn)
}

// Calls returns the recorded invocations.
func (f *FakeDriver) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many times op was invoked.
func (f *FakeDriver) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// URL returns the last navigated URL.
func (f *FakeDriver) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Viewport returns the last viewport set.
func (f *FakeDriver) Viewport() browser.Viewport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewport
}

// Routes returns the registered interception rules.
func (f *FakeDriver) Routes() []browser.RouteRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]browser.RouteRule(nil), f.routes...)
}

// Request resolves url against the routes the way a real driver does: the
// latest matching rule wins and its OnMatch hook runs.
func (f *FakeDriver) Request(url string) (rule browser.RouteRule, ok bool) {
	f.mu.Lock()
	for i := len(f.routes) - 1; i >= 0; i-- {
		if f.routes[i].Match != nil && f.routes[i].Match(url) {
			rule, ok = f.routes[i], true
			break
		}
	}
	f.mu.Unlock()
	if ok && rule.OnMatch != nil {
		rule.OnMatch(url)
	}
	return rule, ok
}

// RaiseDialog delivers d to the registered dialog handler. Without a handler
// the dialog is dismissed.
func (f *FakeDriver) RaiseDialog(d *Dialog) {
	f.mu.Lock()
	h := f.dialog
	f.mu.Unlock()
	if h == nil {
		_ = d.Dismiss()
		return
	}
	h(d)
}

func (f *FakeDriver) record(op, selector, arg string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Selector: selector, Arg: arg})
	f.mu.Unlock()
}

func (f *FakeDriver) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return browser.ErrNotRunning
	}
	return nil
}

func (f *FakeDriver) lookup(selector string) (*Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return nil, browser.ErrNotRunning
	}
	e, ok := f.elements[selector]
	if !ok {
		return nil, fmt.Errorf("no element matches %s", selector)
	}
	return e, nil
}

// Start implements browser.Driver.
func (f *FakeDriver) Start(ctx context.Context) error {
	f.record("start", "", "")
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.running = true
	f.mu.Unlock()
	return nil
}

// Stop implements browser.Driver.
func (f *FakeDriver) Stop() error {
	f.record("stop", "", "")
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
	return nil
}

// IsRunning implements browser.Driver.
func (f *FakeDriver) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Engine implements browser.Driver.
func (f *FakeDriver) Engine() browser.Engine {
	return f.engine
}

// Navigate implements browser.Driver.
func (f *FakeDriver) Navigate(ctx context.Context, url string, waitUntil browser.WaitUntil) error {
	f.record("navigate", url, string(waitUntil))
	if err := f.check(); err != nil {
		return err
	}
	if f.NavigateFunc != nil {
		if err := f.NavigateFunc(ctx, url, waitUntil); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.url = url
	f.mu.Unlock()
	return nil
}

// WaitForLoadState implements browser.Driver.
func (f *FakeDriver) WaitForLoadState(ctx context.Context, state browser.WaitUntil) error {
	f.record("loadstate", "", string(state))
	if err := f.check(); err != nil {
		return err
	}
	if f.LoadStateFunc != nil {
		return f.LoadStateFunc(ctx, state)
	}
	return nil
}

func (f *FakeDriver) reached(selector string, state browser.ElementState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.elements[selector]
	switch state {
	case browser.StateAttached:
		return ok
	case browser.StateDetached:
		return !ok
	case browser.StateHidden:
		return !ok || !e.Visible
	default:
		return ok && e.Visible
	}
}

// WaitForSelector implements browser.Driver by polling the element map
// until state is reached or ctx ends.
func (f *FakeDriver) WaitForSelector(ctx context.Context, selector string, state browser.ElementState) error {
	f.record("wait", selector, string(state))
	if err := f.check(); err != nil {
		return err
	}
	ticker := time.NewTicker(f.PollInterval)
	defer ticker.Stop()
	for {
		if f.reached(selector, state) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s to be %s: %w", selector, state, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Click implements browser.Driver.
func (f *FakeDriver) Click(ctx context.Context, selector string, opts browser.ClickOptions) error {
	arg := ""
	if opts.Force {
		arg = "force"
	}
	f.record("click", selector, arg)
	e, err := f.lookup(selector)
	if err != nil {
		return err
	}
	if f.ClickFunc != nil {
		if err := f.ClickFunc(ctx, selector, opts); err != nil {
			return err
		}
	}
	if !opts.Force && !e.Visible {
		return fmt.Errorf("element %s is not visible", selector)
	}
	f.runHooks(f.onClick, selector)
	return nil
}

func (f *FakeDriver) runHooks(hooks map[string][]func(f *FakeDriver), selector string) {
	f.mu.Lock()
	fns := slices.Clone(hooks[selector])
	f.mu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}

// Hover implements browser.Driver.
func (f *FakeDriver) Hover(ctx context.Context, selector string) error {
	f.record("hover", selector, "")
	if _, err := f.lookup(selector); err != nil {
		return err
	}
	f.runHooks(f.onHover, selector)
	return nil
}

// Fill implements browser.Driver.
func (f *FakeDriver) Fill(ctx context.Context, selector, text string) error {
	f.record("fill", selector, text)
	e, err := f.lookup(selector)
	if err != nil {
		return err
	}
	value := text
	if f.FillFunc != nil && text != "" {
		value = f.FillFunc(selector, text)
	}
	f.mu.Lock()
	e.Value = value
	f.mu.Unlock()
	return nil
}

// SetInputValue implements browser.Driver.
func (f *FakeDriver) SetInputValue(ctx context.Context, selector, value string) error {
	f.record("setvalue", selector, value)
	e, err := f.lookup(selector)
	if err != nil {
		return err
	}
	f.mu.Lock()
	e.Value = value
	f.mu.Unlock()
	return nil
}

// InputValue implements browser.Driver.
func (f *FakeDriver) InputValue(ctx context.Context, selector string) (string, error) {
	f.record("value", selector, "")
	e, err := f.lookup(selector)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return e.Value, nil
}

// TextContent implements browser.Driver.
func (f *FakeDriver) TextContent(ctx context.Context, selector string) (string, error) {
	f.record("text", selector, "")
	e, err := f.lookup(selector)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return e.Text, nil
}

// IsVisible implements browser.Driver.
func (f *FakeDriver) IsVisible(ctx context.Context, selector string) (bool, error) {
	f.record("visible", selector, "")
	if err := f.check(); err != nil {
		return false, err
	}
	return f.reached(selector, browser.StateVisible), nil
}

// Count implements browser.Driver. Keys of the form selector + ":nth(i)"
// count as extra matches of selector.
func (f *FakeDriver) Count(ctx context.Context, selector string) (int, error) {
	f.record("count", selector, "")
	if err := f.check(); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.elements {
		if key == selector || strings.HasPrefix(key, selector+":nth(") {
			n++
		}
	}
	return n, nil
}

// SelectOption implements browser.Driver.
func (f *FakeDriver) SelectOption(ctx context.Context, selector, label string) error {
	f.record("select", selector, label)
	e, err := f.lookup(selector)
	if err != nil {
		return err
	}
	f.mu.Lock()
	found := false
	for _, o := range e.Options {
		if o == label {
			e.Value = label
			found = true
			break
		}
	}
	hooks := slices.Clone(f.onSelect[selector])
	f.mu.Unlock()
	if !found {
		return fmt.Errorf("option %q not found in %s", label, selector)
	}
	for _, fn := range hooks {
		fn(f, label)
	}
	return nil
}

// Press implements browser.Driver.
func (f *FakeDriver) Press(ctx context.Context, key string) error {
	f.record("press", "", key)
	return f.check()
}

// Evaluate implements browser.Driver.
func (f *FakeDriver) Evaluate(ctx context.Context, expression string, out any) error {
	f.record("evaluate", "", expression)
	if err := f.check(); err != nil {
		return err
	}
	if f.EvaluateFunc == nil {
		return errors.New("evaluate not scripted")
	}
	v, err := f.EvaluateFunc(expression)
	if err != nil || out == nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// CaptureScreenshot implements browser.Driver.
func (f *FakeDriver) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	f.record("screenshot", "", "")
	if err := f.check(); err != nil {
		return nil, err
	}
	if f.Screenshot != nil {
		return f.Screenshot, nil
	}
	return OnePixelPNG(), nil
}

// SetViewport implements browser.Driver.
func (f *FakeDriver) SetViewport(ctx context.Context, width, height int) error {
	f.record("viewport", "", fmt.Sprintf("%dx%d", width, height))
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	f.viewport = browser.Viewport{Width: width, Height: height}
	f.mu.Unlock()
	return nil
}

// OnDialog implements browser.Driver.
func (f *FakeDriver) OnDialog(handler browser.DialogHandler) {
	f.mu.Lock()
	f.dialog = handler
	f.mu.Unlock()
}

// Route implements browser.Driver.
func (f *FakeDriver) Route(ctx context.Context, rule browser.RouteRule) error {
	f.record("route", rule.Name, "")
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	f.routes = append(f.routes, rule)
	f.mu.Unlock()
	return nil
}

// OnePixelPNG returns an encoded 1x1 white PNG.
func OnePixelPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

var _ browser.Driver = (*FakeDriver)(nil)
