package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"demoqa-e2e/core/event"
	"demoqa-e2e/infrastructure/browser"
	"demoqa-e2e/infrastructure/browser/browsertest"
)

func navigateArgs(f *browsertest.FakeDriver) []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Op == "navigate" {
			out = append(out, c.Arg)
		}
	}
	return out
}

func TestBrowserController_NavigateResolvesRelativeURL(t *testing.T) {
	ctrl, driver, _, _ := newTestController()

	if err := ctrl.Navigate(context.Background(), "/alerts"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if driver.URL() != "https://demoqa.com/alerts" {
		t.Errorf("URL = %q", driver.URL())
	}
	if got := navigateArgs(driver); len(got) != 1 || got[0] != string(browser.WaitDOMContentLoaded) {
		t.Errorf("navigate milestones = %v, want [domcontentloaded]", got)
	}
	if driver.CallCount("loadstate") != 1 {
		t.Errorf("network idle waited %d times, want 1", driver.CallCount("loadstate"))
	}
	if ctrl.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", ctrl.Retries())
	}
}

func TestBrowserController_NavigateFallbackSucceeds(t *testing.T) {
	ctrl, driver, bus, _ := newTestController()
	var idleCalls atomic.Int32
	driver.LoadStateFunc = func(ctx context.Context, state browser.WaitUntil) error {
		idleCalls.Add(1)
		return errors.New("network never idle")
	}

	if err := ctrl.Navigate(context.Background(), "https://demoqa.com/text-box"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	got := navigateArgs(driver)
	want := []string{"domcontentloaded", "load"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("navigate milestones = %v, want %v", got, want)
	}
	if ctrl.Retries() != 1 {
		t.Errorf("Retries() = %d, want 1", ctrl.Retries())
	}
	if n := len(bus.named("ActionRetried")); n != 1 {
		t.Errorf("ActionRetried events = %d, want 1", n)
	}
}

func TestBrowserController_NavigateExhausted(t *testing.T) {
	ctrl, driver, bus, slept := newTestController()
	cause := errors.New("net::ERR_CONNECTION_RESET")
	driver.NavigateFunc = func(ctx context.Context, url string, wu browser.WaitUntil) error {
		return cause
	}

	err := ctrl.Navigate(context.Background(), "/alerts")

	var navErr *NavigationError
	if !errors.As(err, &navErr) {
		t.Fatalf("Navigate() error = %v, want NavigationError", err)
	}
	if navErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", navErr.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the last driver error")
	}

	// The last attempt gives up without a fallback.
	got := navigateArgs(driver)
	want := []string{"domcontentloaded", "load", "domcontentloaded", "domcontentloaded", "domcontentloaded"}
	if len(got) != len(want) {
		t.Fatalf("navigate milestones = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("navigate[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	backoffs := 0
	for _, d := range *slept {
		if d == time.Second || d == 2*time.Second {
			backoffs++
		}
	}
	if backoffs != 2 {
		t.Errorf("backoff sleeps = %v, want 1s and 2s", *slept)
	}

	if n := len(bus.named("ActionRetried")); n != 2 {
		t.Errorf("ActionRetried events = %d, want 2", n)
	}
	failed := bus.named("ActionFailed")
	if len(failed) != 1 {
		t.Fatalf("ActionFailed events = %d, want 1", len(failed))
	}
	if e := failed[0].(*event.ActionFailed); e.Operation != "navigate" || e.Attempts != 3 {
		t.Errorf("ActionFailed = %+v", e)
	}
}

func TestBrowserController_NavigateNotRunning(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Stop()

	if err := ctrl.Navigate(context.Background(), "/alerts"); !errors.Is(err, browser.ErrNotRunning) {
		t.Errorf("Navigate() error = %v, want ErrNotRunning", err)
	}
}

func TestBrowserController_WaitForElementFallsBackToAttached(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Put("#modal", browsertest.Element{Visible: false})

	if err := ctrl.WaitForElement(context.Background(), "#modal", WaitOptions{}); err != nil {
		t.Fatalf("WaitForElement() error = %v", err)
	}
	if ctrl.Retries() != 1 {
		t.Errorf("Retries() = %d, want 1", ctrl.Retries())
	}

	var states []string
	for _, c := range driver.Calls() {
		if c.Op == "wait" {
			states = append(states, c.Arg)
		}
	}
	if len(states) != 2 || states[0] != "visible" || states[1] != "attached" {
		t.Errorf("wait states = %v, want [visible attached]", states)
	}
}

func TestBrowserController_WaitForElementMissing(t *testing.T) {
	ctrl, _, bus, _ := newTestController()

	start := time.Now()
	err := ctrl.WaitForElement(context.Background(), "#nope", WaitOptions{})
	elapsed := time.Since(start)

	var notFound *ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("WaitForElement() error = %v, want ElementNotFoundError", err)
	}
	if notFound.Attempts != 3 || notFound.State != browser.StateVisible || notFound.Selector != "#nope" {
		t.Errorf("ElementNotFoundError = %+v", notFound)
	}
	if elapsed > 2*time.Second {
		t.Errorf("gave up after %v, want bounded by the attempt timeouts", elapsed)
	}
	if n := len(bus.named("ActionFailed")); n != 1 {
		t.Errorf("ActionFailed events = %d, want 1", n)
	}
}

func TestBrowserController_WaitForDetached(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Show("#tooltip", "You hovered")
	time.AfterFunc(5*time.Millisecond, func() { driver.Remove("#tooltip") })

	err := ctrl.WaitForElement(context.Background(), "#tooltip", WaitOptions{State: browser.StateDetached})
	if err != nil {
		t.Fatalf("WaitForElement(detached) error = %v", err)
	}
}

func TestFallbackState(t *testing.T) {
	tests := []struct {
		in, want browser.ElementState
	}{
		{browser.StateVisible, browser.StateAttached},
		{browser.StateDetached, browser.StateHidden},
		{browser.StateAttached, browser.StateAttached},
		{browser.StateHidden, browser.StateHidden},
	}
	for _, tt := range tests {
		if got := fallbackState(tt.in); got != tt.want {
			t.Errorf("fallbackState(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFallbackWaitUntil(t *testing.T) {
	want := map[int]browser.WaitUntil{
		1: browser.WaitLoad,
		2: browser.WaitDOMContentLoaded,
		3: browser.WaitCommit,
		7: browser.WaitCommit,
	}
	for attempt, w := range want {
		if got := fallbackWaitUntil(attempt); got != w {
			t.Errorf("fallbackWaitUntil(%d) = %s, want %s", attempt, got, w)
		}
	}
}

func TestBrowserController_ClickForcesCoveredElement(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Put("#submit", browsertest.Element{Visible: false})
	clicked := false
	driver.OnClick("#submit", func(*browsertest.FakeDriver) { clicked = true })

	if err := ctrl.Click(context.Background(), "#submit", browser.ClickOptions{}); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if !clicked {
		t.Error("click hook did not run")
	}

	var args []string
	for _, c := range driver.Calls() {
		if c.Op == "click" {
			args = append(args, c.Arg)
		}
	}
	if len(args) != 2 || args[0] != "" || args[1] != "force" {
		t.Errorf("click calls = %q, want normal then forced", args)
	}
	if ctrl.Retries() != 1 {
		t.Errorf("Retries() = %d, want 1", ctrl.Retries())
	}
}

func TestBrowserController_ClickExhausted(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Show("#submit", "Submit")
	driver.ClickFunc = func(ctx context.Context, selector string, opts browser.ClickOptions) error {
		return errors.New("element is detached from the DOM")
	}

	err := ctrl.Click(context.Background(), "#submit", browser.ClickOptions{})

	var clickErr *ClickError
	if !errors.As(err, &clickErr) {
		t.Fatalf("Click() error = %v, want ClickError", err)
	}
	if clickErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", clickErr.Attempts)
	}
	if n := driver.CallCount("click"); n != 5 {
		t.Errorf("click calls = %d, want 5", n)
	}
}

func TestBrowserController_ClickMissingElement(t *testing.T) {
	ctrl, driver, _, _ := newTestController()

	err := ctrl.Click(context.Background(), "#missing", browser.ClickOptions{})

	var clickErr *ClickError
	var notFound *ElementNotFoundError
	if !errors.As(err, &clickErr) || !errors.As(err, &notFound) {
		t.Fatalf("Click() error = %v, want ClickError wrapping ElementNotFoundError", err)
	}
	if driver.CallCount("click") != 0 {
		t.Error("no click should be attempted on a missing element")
	}
}

func TestBrowserController_Fill(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Put("#userName", browsertest.Element{Visible: true, Value: "stale"})

	if err := ctrl.Fill(context.Background(), "#userName", "John Doe"); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	el, _ := driver.Element("#userName")
	if el.Value != "John Doe" {
		t.Errorf("value = %q, want John Doe", el.Value)
	}

	var fills []string
	for _, c := range driver.Calls() {
		if c.Op == "fill" {
			fills = append(fills, c.Arg)
		}
	}
	if len(fills) != 2 || fills[0] != "" || fills[1] != "John Doe" {
		t.Errorf("fill calls = %q, want clear then text", fills)
	}
	if ctrl.Retries() != 0 {
		t.Errorf("Retries() = %d, want 0", ctrl.Retries())
	}
}

func TestBrowserController_FillRetriesLostCharacters(t *testing.T) {
	ctrl, driver, bus, _ := newTestController()
	driver.Put("#userEmail", browsertest.Element{Visible: true})
	var typed atomic.Int32
	driver.FillFunc = func(selector, text string) string {
		if typed.Add(1) == 1 {
			return text[:len(text)-1]
		}
		return text
	}

	if err := ctrl.Fill(context.Background(), "#userEmail", "a@example.com"); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	el, _ := driver.Element("#userEmail")
	if el.Value != "a@example.com" {
		t.Errorf("value = %q", el.Value)
	}
	if driver.CallCount("setvalue") != 0 {
		t.Error("DOM fallback should not be needed")
	}
	if ctrl.Retries() != 1 || len(bus.named("ActionRetried")) != 1 {
		t.Errorf("Retries() = %d, want 1", ctrl.Retries())
	}
}

func TestBrowserController_FillForcesValue(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	driver.Put("#currentAddress", browsertest.Element{Visible: true})
	driver.FillFunc = func(selector, text string) string { return text[:1] }

	if err := ctrl.Fill(context.Background(), "#currentAddress", "221B Baker Street"); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if driver.CallCount("setvalue") != 1 {
		t.Errorf("setvalue calls = %d, want 1", driver.CallCount("setvalue"))
	}
	el, _ := driver.Element("#currentAddress")
	if el.Value != "221B Baker Street" {
		t.Errorf("value = %q", el.Value)
	}
	if ctrl.Retries() != 2 {
		t.Errorf("Retries() = %d, want 2", ctrl.Retries())
	}
}

func TestBrowserController_FillMissingElement(t *testing.T) {
	ctrl, _, _, _ := newTestController()

	err := ctrl.Fill(context.Background(), "#nope", "x")
	var notFound *ElementNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Fill() error = %v, want ElementNotFoundError", err)
	}
	if notFound.State != browser.StateAttached {
		t.Errorf("State = %s, want attached", notFound.State)
	}
}

func TestBrowserController_Queries(t *testing.T) {
	ctrl, driver, _, _ := newTestController()
	ctx := context.Background()
	driver.Show("#output #name", "Name:John")
	driver.Put("#oldSelectMenu", browsertest.Element{Visible: true, Options: []string{"Red", "Blue"}})
	hovered := false
	driver.OnHover("#toolTipButton", func(f *browsertest.FakeDriver) {
		hovered = true
		f.Show(".tooltip-inner", "You hovered over the Button")
	})
	driver.Show("#toolTipButton", "Hover me to see")

	text, err := ctrl.GetText(ctx, "#output #name")
	if err != nil || text != "Name:John" {
		t.Errorf("GetText() = %q, %v", text, err)
	}

	if ctrl.IsVisible(ctx, "#missing") {
		t.Error("missing element reported visible")
	}

	if err := ctrl.SelectOption(ctx, "#oldSelectMenu", "Blue"); err != nil {
		t.Errorf("SelectOption() error = %v", err)
	}
	if v, _ := ctrl.InputValue(ctx, "#oldSelectMenu"); v != "Blue" {
		t.Errorf("selected = %q, want Blue", v)
	}

	if err := ctrl.Hover(ctx, "#toolTipButton"); err != nil || !hovered {
		t.Errorf("Hover() error = %v, hovered = %v", err, hovered)
	}
	if !ctrl.IsVisible(ctx, ".tooltip-inner") {
		t.Error("tooltip should be visible after hover")
	}

	if n, err := ctrl.Count(ctx, "#toolTipButton"); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v", n, err)
	}

	driver.Stop()
	if ctrl.IsVisible(ctx, "#toolTipButton") {
		t.Error("stopped browser reported a visible element")
	}
}
