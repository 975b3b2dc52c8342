package pages

import (
	"context"

	"demoqa-e2e/application/session"
	"demoqa-e2e/infrastructure/browser"
)

// Messages shown by the alerts page.
const (
	AlertMessage      = "You clicked a button"
	TimerAlertMessage = "This alert appeared after 5 seconds"
	ConfirmMessage    = "Do you confirm action?"
	PromptMessage     = "Please enter your name"

	ConfirmAccepted  = "You selected Ok"
	ConfirmDismissed = "You selected Cancel"
)

// AlertsPage drives /alerts.
type AlertsPage struct {
	page
}

// NewAlertsPage creates the alerts page object. opts may be nil.
func NewAlertsPage(s *session.Session, opts *Options) *AlertsPage {
	return &AlertsPage{page: newPage(s, "alerts", opts)}
}

const (
	alertButton      = "#alertButton"
	timerAlertButton = "#timerAlertButton"
	confirmButton    = "#confirmButton"
	promptButton     = "#promtButton"
	confirmResult    = "#confirmResult"
	promptResult     = "#promptResult"
)

// Open navigates to the page.
func (p *AlertsPage) Open(ctx context.Context) error {
	return p.open(ctx, "/alerts", alertButton)
}

// ClickAlert triggers the simple alert and accepts it.
func (p *AlertsPage) ClickAlert(ctx context.Context) (*session.ObservedDialog, error) {
	return p.expectDialog(ctx, alertButton, session.DialogExpectation{
		Type:    browser.DialogAlert,
		Message: AlertMessage,
		Accept:  true,
	}, p.opts.DialogTimeout)
}

// ClickTimerAlert triggers the delayed alert and accepts it once it shows.
func (p *AlertsPage) ClickTimerAlert(ctx context.Context) (*session.ObservedDialog, error) {
	return p.expectDialog(ctx, timerAlertButton, session.DialogExpectation{
		Type:    browser.DialogAlert,
		Message: TimerAlertMessage,
		Accept:  true,
	}, p.opts.TimerDialogTimeout)
}

// ClickConfirm triggers the confirm dialog and accepts or dismisses it.
func (p *AlertsPage) ClickConfirm(ctx context.Context, accept bool) (*session.ObservedDialog, error) {
	return p.expectDialog(ctx, confirmButton, session.DialogExpectation{
		Type:    browser.DialogConfirm,
		Message: ConfirmMessage,
		Accept:  accept,
	}, p.opts.DialogTimeout)
}

// ClickPrompt triggers the prompt dialog and answers it with text.
func (p *AlertsPage) ClickPrompt(ctx context.Context, text string) (*session.ObservedDialog, error) {
	return p.expectDialog(ctx, promptButton, session.DialogExpectation{
		Type:       browser.DialogPrompt,
		Message:    PromptMessage,
		Accept:     true,
		PromptText: text,
	}, p.opts.DialogTimeout)
}

// ConfirmResult returns the outcome line printed after a confirm.
func (p *AlertsPage) ConfirmResult(ctx context.Context) (string, error) {
	return p.browser.GetText(ctx, confirmResult)
}

// PromptResult returns the outcome line printed after a prompt.
func (p *AlertsPage) PromptResult(ctx context.Context) (string, error) {
	return p.browser.GetText(ctx, promptResult)
}
