package session

import (
	"fmt"

	"demoqa-e2e/infrastructure/browser"
)

// NavigationError is returned when a page could not be loaded within the retry budget.
type NavigationError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ElementNotFoundError is returned when an element never reached the awaited state.
type ElementNotFoundError struct {
	Selector string
	State    browser.ElementState
	Attempts int
	Err      error
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element %s not %s after %d attempts: %v", e.Selector, e.State, e.Attempts, e.Err)
}

func (e *ElementNotFoundError) Unwrap() error { return e.Err }

// ClickError is returned when neither a normal nor a forced click succeeded.
type ClickError struct {
	Selector string
	Attempts int
	Err      error
}

func (e *ClickError) Error() string {
	return fmt.Sprintf("click on %s failed after %d attempts: %v", e.Selector, e.Attempts, e.Err)
}

func (e *ClickError) Unwrap() error { return e.Err }

// FillVerificationError reports a field whose value differs from what was typed.
// Fill logs it and retries; it is not returned to callers.
type FillVerificationError struct {
	Selector string
	Want     string
	Got      string
}

func (e *FillVerificationError) Error() string {
	return fmt.Sprintf("field %s holds %q, want %q", e.Selector, e.Got, e.Want)
}

// DialogAssertionError is returned when the dialog that appeared is not the expected one.
type DialogAssertionError struct {
	WantType    browser.DialogType
	GotType     browser.DialogType
	WantMessage string
	GotMessage  string
}

func (e *DialogAssertionError) Error() string {
	return fmt.Sprintf("unexpected dialog %s %q, want %s %q", e.GotType, e.GotMessage, e.WantType, e.WantMessage)
}
