// Package pages holds the page objects of the demo application. Each page
// object drives one screen through a session's resilient action layer and
// returns plain data for tests to assert on.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"demoqa-e2e/application/session"
	"demoqa-e2e/infrastructure/browser"
)

// Options tunes the page-level waits that sit outside the retry policy.
type Options struct {
	// DialogTimeout bounds the wait for a dialog raised by a click.
	DialogTimeout time.Duration
	// TimerDialogTimeout bounds the wait for the delayed alert.
	TimerDialogTimeout time.Duration
	// OutputTimeout bounds the wait for a result panel after submit.
	OutputTimeout time.Duration
	// ModalTimeout bounds the wait for a modal after submit.
	ModalTimeout time.Duration
	// CloseTimeout bounds the wait for a modal to hide after each close strategy.
	CloseTimeout time.Duration
	// TooltipTimeout bounds the wait for each tooltip selector candidate.
	TooltipTimeout time.Duration
	// Pause is the short delay used between interactions that animate.
	Pause time.Duration
}

// DefaultOptions returns the waits used against the live site.
func DefaultOptions() *Options {
	return &Options{
		DialogTimeout:      5 * time.Second,
		TimerDialogTimeout: 10 * time.Second,
		OutputTimeout:      5 * time.Second,
		ModalTimeout:       10 * time.Second,
		CloseTimeout:       5 * time.Second,
		TooltipTimeout:     3 * time.Second,
		Pause:              500 * time.Millisecond,
	}
}

// FieldMismatch reports one field whose observed value differs from the input.
type FieldMismatch struct {
	Page  string
	Field string
	Want  string
	Got   string
}

func (e *FieldMismatch) Error() string {
	return fmt.Sprintf("%s: %s = %q, want %q", e.Page, e.Field, e.Got, e.Want)
}

// page is embedded by every page object.
type page struct {
	name    string
	browser *session.BrowserController
	dialogs *session.DialogWaiter
	opts    *Options
	logger  *slog.Logger
}

func newPage(s *session.Session, name string, opts *Options) page {
	if opts == nil {
		opts = DefaultOptions()
	}
	return page{
		name:    name,
		browser: s.Browser(),
		dialogs: s.Dialogs(),
		opts:    opts,
		logger:  s.Logger().With("page", name),
	}
}

// open navigates to path and waits for the element that marks the page ready.
func (p *page) open(ctx context.Context, path, ready string) error {
	if err := p.browser.Navigate(ctx, path); err != nil {
		return err
	}
	return p.browser.WaitForElement(ctx, ready, session.WaitOptions{})
}

func (p *page) click(ctx context.Context, selector string) error {
	return p.browser.Click(ctx, selector, browser.ClickOptions{})
}

// labelledText returns the text of selector with label removed, or "" and
// false when the element is not shown.
func (p *page) labelledText(ctx context.Context, selector, label string) (string, bool, error) {
	if !p.browser.IsVisible(ctx, selector) {
		return "", false, nil
	}
	text, err := p.browser.GetText(ctx, selector)
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(strings.Replace(text, label, "", 1)), true, nil
}

// expectDialog arms exp, clicks trigger and waits up to timeout for the dialog.
func (p *page) expectDialog(ctx context.Context, trigger string, exp session.DialogExpectation, timeout time.Duration) (*session.ObservedDialog, error) {
	pending, err := p.dialogs.Expect(exp)
	if err != nil {
		return nil, err
	}
	if err := p.click(ctx, trigger); err != nil {
		pending.Cancel()
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pending.Wait(waitCtx)
}

type field struct {
	name, want, got string
}

// compare collects a FieldMismatch for every differing field.
func (p *page) compare(fields ...field) error {
	var errs []error
	for _, f := range fields {
		if f.want != f.got {
			errs = append(errs, &FieldMismatch{Page: p.name, Field: f.name, Want: f.want, Got: f.got})
		}
	}
	return errors.Join(errs...)
}
