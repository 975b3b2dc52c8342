package browsertest

import (
	"sync"

	"demoqa-e2e/infrastructure/browser"
)

// Dialog is a fake native dialog that records how it was answered.
type Dialog struct {
	Kind    browser.DialogType
	Text    string
	Default string

	mu         sync.Mutex
	handled    bool
	accepted   bool
	promptText string
}

// NewDialog returns an unanswered dialog.
func NewDialog(kind browser.DialogType, message string) *Dialog {
	return &Dialog{Kind: kind, Text: message}
}

func (d *Dialog) Type() browser.DialogType { return d.Kind }
func (d *Dialog) Message() string          { return d.Text }
func (d *Dialog) DefaultValue() string     { return d.Default }

// Accept implements browser.Dialog.
func (d *Dialog) Accept(promptText string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled, d.accepted, d.promptText = true, true, promptText
	return nil
}

// Dismiss implements browser.Dialog.
func (d *Dialog) Dismiss() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled = true
	return nil
}

// Handled reports whether the dialog was answered.
func (d *Dialog) Handled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handled
}

// Accepted reports whether the dialog was accepted.
func (d *Dialog) Accepted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.accepted
}

// PromptText returns the text given on accept.
func (d *Dialog) PromptText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.promptText
}

var _ browser.Dialog = (*Dialog)(nil)
