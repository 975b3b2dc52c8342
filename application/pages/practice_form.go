package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"demoqa-e2e/application/session"
	"demoqa-e2e/domain/testdata"
	"demoqa-e2e/infrastructure/browser"
)

// ModalTitle is the heading of the submission modal.
const ModalTitle = "Thanks for submitting the form"

// PracticeFormPage drives /automation-practice-form.
type PracticeFormPage struct {
	page
}

// NewPracticeFormPage creates the practice form page object. opts may be nil.
func NewPracticeFormPage(s *session.Session, opts *Options) *PracticeFormPage {
	return &PracticeFormPage{page: newPage(s, "practice-form", opts)}
}

const (
	firstNameInput = "#firstName"
	lastNameInput  = "#lastName"
	formEmailInput = "#userEmail"
	mobileInput    = "#userNumber"
	formSubmit     = "#submit"

	modalDialog      = ".modal-dialog"
	modalTitle       = "#example-modal-sizes-title-lg"
	modalCloseButton = "#closeLargeModal"
	resultRows       = ".table-responsive table tbody tr"
	invalidFields    = ".was-validated input:invalid, .is-invalid"
)

// genderLabel returns the label of the gender radio. The radio inputs are
// covered by custom styling, so their labels take the click.
func genderLabel(gender string) string {
	id := "gender-radio-3"
	switch strings.ToLower(gender) {
	case "male":
		id = "gender-radio-1"
	case "female":
		id = "gender-radio-2"
	}
	return `label[for="` + id + `"]`
}

// FormState is the form as it stood when a submission produced no modal.
type FormState struct {
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	Mobile           string `json:"mobile"`
	ValidationErrors int    `json:"validationErrors"`
}

// ModalError is returned by Submit when the result modal never shows.
type ModalError struct {
	State FormState
	Err   error
}

func (e *ModalError) Error() string {
	state, _ := json.Marshal(e.State)
	return fmt.Sprintf("modal did not appear. Form state: %s", state)
}

func (e *ModalError) Unwrap() error {
	return e.Err
}

// Open navigates to the page.
func (p *PracticeFormPage) Open(ctx context.Context) error {
	return p.open(ctx, "/automation-practice-form", firstNameInput)
}

// FillMandatory fills the required fields and picks the gender.
func (p *PracticeFormPage) FillMandatory(ctx context.Context, data testdata.FormData) error {
	for _, f := range []struct{ sel, text string }{
		{firstNameInput, data.FirstName},
		{lastNameInput, data.LastName},
		{formEmailInput, data.Email},
	} {
		if err := p.browser.Fill(ctx, f.sel, f.text); err != nil {
			return err
		}
	}

	if err := p.click(ctx, genderLabel(data.Gender)); err != nil {
		return err
	}

	if err := p.browser.Fill(ctx, mobileInput, data.Mobile); err != nil {
		return err
	}
	return p.verifyMobile(ctx, data.Mobile)
}

// verifyMobile re-reads the masked mobile input, which drops keystrokes
// more often than the others, and forces the value when it still differs.
func (p *PracticeFormPage) verifyMobile(ctx context.Context, want string) error {
	got, err := p.browser.InputValue(ctx, mobileInput)
	if err != nil {
		return err
	}
	if got == want {
		return nil
	}
	p.logger.Warn("Mobile number mismatch, forcing value", "want", want, "got", got)
	if err := p.browser.SetValue(ctx, mobileInput, want); err != nil {
		return err
	}
	if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
		return err
	}
	if got, err = p.browser.InputValue(ctx, mobileInput); err == nil && got != want {
		p.logger.Warn("Mobile number still differs", "error", &session.FillVerificationError{Selector: mobileInput, Want: want, Got: got})
	}
	return nil
}

// Submit scrolls to submit and clicks it. With waitForModal a missing modal
// yields a *ModalError describing the form.
func (p *PracticeFormPage) Submit(ctx context.Context, waitForModal bool) error {
	scroll := fmt.Sprintf("(() => { const el = document.querySelector(%q); if (el) el.scrollIntoView({block: 'center'}); })()", formSubmit)
	if err := p.browser.Evaluate(ctx, scroll, nil); err != nil {
		p.logger.Debug("Scroll to submit failed", "error", err)
	}
	if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
		return err
	}
	if err := p.click(ctx, formSubmit); err != nil {
		return err
	}

	if !waitForModal {
		return p.browser.Sleep(ctx, 2*p.opts.Pause)
	}
	if err := p.browser.WaitForState(ctx, modalDialog, browser.StateVisible, p.opts.ModalTimeout); err != nil {
		return &ModalError{State: p.formState(ctx), Err: err}
	}
	return nil
}

func (p *PracticeFormPage) formState(ctx context.Context) FormState {
	var st FormState
	for _, f := range []struct {
		sel string
		dst *string
	}{
		{firstNameInput, &st.FirstName},
		{lastNameInput, &st.LastName},
		{formEmailInput, &st.Email},
		{mobileInput, &st.Mobile},
	} {
		*f.dst, _ = p.browser.InputValue(ctx, f.sel)
	}
	st.ValidationErrors, _ = p.browser.Count(ctx, invalidFields)
	return st
}

// ModalDisplayed reports whether the result modal is shown.
func (p *PracticeFormPage) ModalDisplayed(ctx context.Context) bool {
	return p.browser.IsVisible(ctx, modalDialog)
}

// ModalTitle returns the heading of the result modal.
func (p *PracticeFormPage) ModalTitle(ctx context.Context) (string, error) {
	return p.browser.GetText(ctx, modalTitle)
}

// rowsJS returns the cell texts of every result row.
var rowsJS = fmt.Sprintf("Array.from(document.querySelectorAll(%q)).map(r => Array.from(r.querySelectorAll('td')).map(td => td.textContent.trim()))", resultRows)

// SubmittedData reads the result table into label → value.
func (p *PracticeFormPage) SubmittedData(ctx context.Context) (map[string]string, error) {
	var rows [][]string
	if err := p.browser.Evaluate(ctx, rowsJS, &rows); err != nil {
		return nil, fmt.Errorf("failed to read result table: %w", err)
	}
	data := make(map[string]string, len(rows))
	for _, cells := range rows {
		if len(cells) >= 2 {
			data[strings.TrimSpace(cells[0])] = strings.TrimSpace(cells[1])
		}
	}
	return data, nil
}

const removeAdsJS = `document.querySelectorAll('#fixedban, [id*="google_ads"], iframe[src*="googlesyndication"]').forEach(ad => ad.remove())`

var jsCloseJS = fmt.Sprintf("(() => { const b = document.querySelector(%q); if (b) b.click(); })()", modalCloseButton)

// CloseModal closes the result modal. Overlaid ads are removed first; if the
// close button does not hide the modal, Escape and then a script click are tried.
func (p *PracticeFormPage) CloseModal(ctx context.Context) error {
	if err := p.browser.WaitForElement(ctx, modalDialog, session.WaitOptions{}); err != nil {
		return err
	}

	err := p.closeByButton(ctx)
	if err == nil {
		return nil
	}
	p.logger.Info("Close button did not hide the modal, pressing Escape", "error", err)

	if err := p.browser.Press(ctx, "Escape"); err == nil {
		if err := p.browser.WaitForState(ctx, modalDialog, browser.StateHidden, p.opts.CloseTimeout); err == nil {
			return nil
		}
	}
	p.logger.Info("Escape did not hide the modal, clicking through script")

	if err := p.browser.Evaluate(ctx, jsCloseJS, nil); err != nil {
		return fmt.Errorf("failed to close modal: %w", err)
	}
	if err := p.browser.Sleep(ctx, 2*p.opts.Pause); err != nil {
		return err
	}
	if p.ModalDisplayed(ctx) {
		return fmt.Errorf("%s: modal is still displayed", p.name)
	}
	return nil
}

func (p *PracticeFormPage) closeByButton(ctx context.Context) error {
	if err := p.browser.Evaluate(ctx, removeAdsJS, nil); err != nil {
		p.logger.Debug("Ad removal failed", "error", err)
	}
	if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
		return err
	}
	if err := p.click(ctx, modalCloseButton); err != nil {
		return err
	}
	return p.browser.WaitForState(ctx, modalDialog, browser.StateHidden, p.opts.CloseTimeout)
}

// Validate checks the modal shows want.
func (p *PracticeFormPage) Validate(ctx context.Context, want testdata.FormData) (map[string]string, error) {
	if !p.ModalDisplayed(ctx) {
		return nil, fmt.Errorf("%s: result modal is not displayed", p.name)
	}
	title, err := p.ModalTitle(ctx)
	if err != nil {
		return nil, err
	}
	got, err := p.SubmittedData(ctx)
	if err != nil {
		return nil, err
	}
	return got, p.compare(
		field{"title", ModalTitle, strings.TrimSpace(title)},
		field{"Student Name", want.FirstName + " " + want.LastName, got["Student Name"]},
		field{"Student Email", want.Email, got["Student Email"]},
		field{"Gender", want.Gender, got["Gender"]},
		field{"Mobile", want.Mobile, got["Mobile"]},
	)
}
