package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/infrastructure/browser"
)

// ErrDialogArmed is returned by Expect while another expectation is pending.
var ErrDialogArmed = errors.New("a dialog expectation is already armed")

// DialogExpectation describes the next dialog and how to answer it.
type DialogExpectation struct {
	// Type must match when set.
	Type browser.DialogType
	// Message must match exactly when set.
	Message string
	// Accept answers positively; otherwise the dialog is dismissed.
	Accept bool
	// PromptText is typed into prompt dialogs on accept.
	PromptText string
}

func (e DialogExpectation) matches(d browser.Dialog) bool {
	if e.Type != "" && d.Type() != e.Type {
		return false
	}
	if e.Message != "" && d.Message() != e.Message {
		return false
	}
	return true
}

// ObservedDialog is the dialog that consumed an expectation.
type ObservedDialog struct {
	Type         browser.DialogType
	Message      string
	DefaultValue string
	Accepted     bool
	err          error
}

// DialogWaiter routes native dialogs to one-shot expectations. Dialogs that
// arrive while nothing is armed are dismissed so the page never blocks.
type DialogWaiter struct {
	mu    sync.Mutex
	armed *PendingDialog

	sessionID string
	eventBus  eventbus.EventBus
	logger    *slog.Logger
}

// NewDialogWaiter creates a waiter. Register its Handle method with the driver.
func NewDialogWaiter(sessionID string, bus eventbus.EventBus, logger *slog.Logger) *DialogWaiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DialogWaiter{sessionID: sessionID, eventBus: bus, logger: logger}
}

// PendingDialog is an armed expectation.
type PendingDialog struct {
	waiter *DialogWaiter
	exp    DialogExpectation
	done   chan ObservedDialog
}

// Expect arms an expectation for the next dialog.
func (w *DialogWaiter) Expect(exp DialogExpectation) (*PendingDialog, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.armed != nil {
		return nil, ErrDialogArmed
	}
	p := &PendingDialog{waiter: w, exp: exp, done: make(chan ObservedDialog, 1)}
	w.armed = p
	return p, nil
}

// Armed reports whether an expectation is pending.
func (w *DialogWaiter) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed != nil
}

// Wait blocks until the dialog was handled or ctx ends. On timeout the
// expectation is disarmed.
func (p *PendingDialog) Wait(ctx context.Context) (*ObservedDialog, error) {
	select {
	case obs := <-p.done:
		return &obs, obs.err
	case <-ctx.Done():
		p.waiter.disarm(p)
		// The dialog may have landed between the two cases.
		select {
		case obs := <-p.done:
			return &obs, obs.err
		default:
		}
		return nil, fmt.Errorf("no dialog appeared: %w", ctx.Err())
	}
}

// Cancel disarms the expectation if it has not fired.
func (p *PendingDialog) Cancel() {
	p.waiter.disarm(p)
}

func (w *DialogWaiter) disarm(p *PendingDialog) {
	w.mu.Lock()
	if w.armed == p {
		w.armed = nil
	}
	w.mu.Unlock()
}

// Handle consumes the armed expectation, if any, and answers d.
func (w *DialogWaiter) Handle(d browser.Dialog) {
	w.mu.Lock()
	p := w.armed
	w.armed = nil
	w.mu.Unlock()

	w.publish(event.NewDialogOpened(w.sessionID, string(d.Type()), d.Message(), p != nil))

	if p == nil {
		w.logger.Warn("Dismissing unexpected dialog", "type", d.Type(), "message", d.Message())
		if err := d.Dismiss(); err != nil {
			w.logger.Error("Failed to dismiss dialog", "error", err)
		}
		return
	}

	obs := ObservedDialog{Type: d.Type(), Message: d.Message(), DefaultValue: d.DefaultValue()}
	switch {
	case !p.exp.matches(d):
		obs.err = &DialogAssertionError{
			WantType:    p.exp.Type,
			GotType:     d.Type(),
			WantMessage: p.exp.Message,
			GotMessage:  d.Message(),
		}
		if err := d.Dismiss(); err != nil {
			w.logger.Error("Failed to dismiss dialog", "error", err)
		}
	case p.exp.Accept:
		if err := d.Accept(p.exp.PromptText); err != nil {
			obs.err = fmt.Errorf("failed to accept dialog: %w", err)
		} else {
			obs.Accepted = true
		}
	default:
		if err := d.Dismiss(); err != nil {
			obs.err = fmt.Errorf("failed to dismiss dialog: %w", err)
		}
	}

	w.logger.Debug("Dialog handled", "type", obs.Type, "message", obs.Message, "accepted", obs.Accepted)
	p.done <- obs
}

func (w *DialogWaiter) publish(e event.Event) {
	if w.eventBus != nil {
		w.eventBus.Publish(e)
	}
}
