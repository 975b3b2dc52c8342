package pages

import (
	"context"
	"fmt"

	"demoqa-e2e/application/session"
	"demoqa-e2e/domain/testdata"
	"demoqa-e2e/infrastructure/browser"
)

// TextBoxPage drives /text-box.
type TextBoxPage struct {
	page
}

// NewTextBoxPage creates the text box page object. opts may be nil.
func NewTextBoxPage(s *session.Session, opts *Options) *TextBoxPage {
	return &TextBoxPage{page: newPage(s, "text-box", opts)}
}

const (
	fullNameInput         = "#userName"
	textBoxEmailInput     = "#userEmail"
	currentAddressInput   = "#currentAddress"
	permanentAddressInput = "#permanentAddress"
	textBoxSubmit         = "#submit"

	outputPanel            = "#output"
	outputName             = "#output #name"
	outputEmail            = "#output #email"
	outputCurrentAddress   = "#output #currentAddress"
	outputPermanentAddress = "#output #permanentAddress"
)

// TextBoxOutput is the echoed submission. A field the page does not show is
// empty and absent from Shown.
type TextBoxOutput struct {
	Name             string
	Email            string
	CurrentAddress   string
	PermanentAddress string
	Shown            map[string]bool
}

// Open navigates to the page.
func (p *TextBoxPage) Open(ctx context.Context) error {
	return p.open(ctx, "/text-box", fullNameInput)
}

// Fill types every field of data.
func (p *TextBoxPage) Fill(ctx context.Context, data testdata.TextBoxData) error {
	for _, f := range []struct{ sel, text string }{
		{fullNameInput, data.FullName},
		{textBoxEmailInput, data.Email},
		{currentAddressInput, data.CurrentAddress},
		{permanentAddressInput, data.PermanentAddress},
	} {
		if err := p.browser.Fill(ctx, f.sel, f.text); err != nil {
			return err
		}
	}
	return nil
}

// Submit clicks submit. With waitForOutput it also waits for the output
// panel; a panel that never shows is tolerated because invalid input hides it.
func (p *TextBoxPage) Submit(ctx context.Context, waitForOutput bool) error {
	if err := p.click(ctx, textBoxSubmit); err != nil {
		return err
	}
	if !waitForOutput {
		return nil
	}
	if err := p.browser.WaitForState(ctx, outputPanel, browser.StateVisible, p.opts.OutputTimeout); err != nil {
		p.logger.Info("Output panel did not appear", "error", err)
	}
	return nil
}

// OutputDisplayed reports whether the output panel is shown.
func (p *TextBoxPage) OutputDisplayed(ctx context.Context) bool {
	return p.browser.IsVisible(ctx, outputPanel)
}

// SubmitVisible reports whether the submit button is still shown.
func (p *TextBoxPage) SubmitVisible(ctx context.Context) bool {
	return p.browser.IsVisible(ctx, textBoxSubmit)
}

// Output reads the echoed fields with their labels stripped.
func (p *TextBoxPage) Output(ctx context.Context) (*TextBoxOutput, error) {
	out := &TextBoxOutput{Shown: make(map[string]bool)}
	for _, f := range []struct {
		key, sel, label string
		dst             *string
	}{
		{"name", outputName, "Name:", &out.Name},
		{"email", outputEmail, "Email:", &out.Email},
		{"currentAddress", outputCurrentAddress, "Current Address :", &out.CurrentAddress},
		// The page misspells this label.
		{"permanentAddress", outputPermanentAddress, "Permananet Address :", &out.PermanentAddress},
	} {
		text, shown, err := p.labelledText(ctx, f.sel, f.label)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.key, err)
		}
		*f.dst = text
		if shown {
			out.Shown[f.key] = true
		}
	}
	return out, nil
}

// Validate checks the output panel echoes want.
func (p *TextBoxPage) Validate(ctx context.Context, want testdata.TextBoxData) (*TextBoxOutput, error) {
	if !p.OutputDisplayed(ctx) {
		return nil, fmt.Errorf("%s: output panel is not displayed", p.name)
	}
	got, err := p.Output(ctx)
	if err != nil {
		return nil, err
	}
	return got, p.compare(
		field{"name", want.FullName, got.Name},
		field{"email", want.Email, got.Email},
		field{"currentAddress", want.CurrentAddress, got.CurrentAddress},
		field{"permanentAddress", want.PermanentAddress, got.PermanentAddress},
	)
}
