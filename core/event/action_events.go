package event

import "time"

// ActionRetried is published when a resilient operation fails an attempt and will try again.
type ActionRetried struct {
	baseSessionEvent
	Operation   string
	Target      string
	Attempt     int
	MaxAttempts int
	Error       error
}

func NewActionRetried(sessionID, operation, target string, attempt, maxAttempts int, err error) *ActionRetried {
	return &ActionRetried{
		baseSessionEvent: newBase(sessionID),
		Operation:        operation,
		Target:           target,
		Attempt:          attempt,
		MaxAttempts:      maxAttempts,
		Error:            err,
	}
}

func (e *ActionRetried) EventName() string {
	return "ActionRetried"
}

// ActionFailed is published when a resilient operation exhausts its attempts.
type ActionFailed struct {
	baseSessionEvent
	Operation string
	Target    string
	Attempts  int
	Error     error
}

func NewActionFailed(sessionID, operation, target string, attempts int, err error) *ActionFailed {
	return &ActionFailed{
		baseSessionEvent: newBase(sessionID),
		Operation:        operation,
		Target:           target,
		Attempts:         attempts,
		Error:            err,
	}
}

func (e *ActionFailed) EventName() string {
	return "ActionFailed"
}

// DialogOpened is published for every native dialog the page raises.
// Expected is false when no test had armed a wait for it.
type DialogOpened struct {
	baseSessionEvent
	DialogType string
	Message    string
	Expected   bool
}

func NewDialogOpened(sessionID, dialogType, message string, expected bool) *DialogOpened {
	return &DialogOpened{
		baseSessionEvent: newBase(sessionID),
		DialogType:       dialogType,
		Message:          message,
		Expected:         expected,
	}
}

func (e *DialogOpened) EventName() string {
	return "DialogOpened"
}

// RequestBlocked is published when a request is aborted by an interception rule.
type RequestBlocked struct {
	baseSessionEvent
	URL  string
	Rule string
}

func NewRequestBlocked(sessionID, url, rule string) *RequestBlocked {
	return &RequestBlocked{
		baseSessionEvent: newBase(sessionID),
		URL:              url,
		Rule:             rule,
	}
}

func (e *RequestBlocked) EventName() string {
	return "RequestBlocked"
}

// ScreenshotSaved is published when a page screenshot is written to disk.
type ScreenshotSaved struct {
	baseSessionEvent
	Path   string
	Reason string
}

func NewScreenshotSaved(sessionID, path, reason string) *ScreenshotSaved {
	return &ScreenshotSaved{
		baseSessionEvent: newBase(sessionID),
		Path:             path,
		Reason:           reason,
	}
}

func (e *ScreenshotSaved) EventName() string {
	return "ScreenshotSaved"
}

// TestFinished is published when a scenario completes on a session.
type TestFinished struct {
	baseSessionEvent
	Name     string
	Outcome  string
	Duration time.Duration
	Error    error
}

func NewTestFinished(sessionID, name, outcome string, duration time.Duration, err error) *TestFinished {
	return &TestFinished{
		baseSessionEvent: newBase(sessionID),
		Name:             name,
		Outcome:          outcome,
		Duration:         duration,
		Error:            err,
	}
}

func (e *TestFinished) EventName() string {
	return "TestFinished"
}
