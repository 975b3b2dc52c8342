package pages

import (
	"context"
	"fmt"
	"strings"

	"demoqa-e2e/application/session"
	"demoqa-e2e/infrastructure/browser"
)

// Options picked on the select menu page.
const (
	GroupOption   = "Group 2, option 1"
	SelectOneText = "Other"
	OldStyleColor = "Green"
)

// MultiColors are picked in the multiselect, in order.
var MultiColors = []string{"Black", "Blue"}

// SelectMenuPage drives /select-menu.
type SelectMenuPage struct {
	page
}

// NewSelectMenuPage creates the select menu page object. opts may be nil.
func NewSelectMenuPage(s *session.Session, opts *Options) *SelectMenuPage {
	return &SelectMenuPage{page: newPage(s, "select-menu", opts)}
}

const (
	selectValue    = "#withOptGroup"
	selectOne      = "#selectOne"
	oldStyleSelect = "#oldSelectMenu"
	oldStyleOption = "#oldSelectMenu option:checked"
	multiSelect    = "xpath=(//div[@id='selectMenuContainer']//div[contains(@class,'css-2b097c-container')])[last()]"
	multiMenu      = ".css-26l3qy-menu"
	pageHeading    = "h1"
)

func menuOption(label string) string {
	return "xpath=//div[contains(@class,'css-26l3qy-menu')]//div[text()=" + quoteXPath(label) + "]"
}

func selectedTag(label string) string {
	return "xpath=//div[@id='selectMenuContainer']//div[contains(@class,'css-12jo7m5')][contains(.," + quoteXPath(label) + ")]"
}

// quoteXPath quotes labels known not to contain both quote kinds.
func quoteXPath(s string) string {
	if strings.Contains(s, "'") {
		return `"` + s + `"`
	}
	return "'" + s + "'"
}

// Selections is what the four menus show.
type Selections struct {
	SelectValue string
	SelectOne   string
	OldStyle    string
	Multi       map[string]bool
}

// Open navigates to the page.
func (p *SelectMenuPage) Open(ctx context.Context) error {
	return p.open(ctx, "/select-menu", selectValue)
}

// pickReactOption opens a react-select and clicks the option labelled text.
func (p *SelectMenuPage) pickReactOption(ctx context.Context, menu, option, want string) error {
	if err := p.click(ctx, menu); err != nil {
		return err
	}
	if err := p.click(ctx, option); err != nil {
		return err
	}
	got, err := p.browser.GetText(ctx, menu)
	if err != nil {
		return err
	}
	if !strings.Contains(got, want) {
		return &FieldMismatch{Page: p.name, Field: menu, Want: want, Got: got}
	}
	return nil
}

// SelectGroupOption picks "Group 2, option 1" in Select Value.
func (p *SelectMenuPage) SelectGroupOption(ctx context.Context) error {
	return p.pickReactOption(ctx, selectValue, "text="+GroupOption, GroupOption)
}

// SelectOneOther picks "Other" in Select One.
func (p *SelectMenuPage) SelectOneOther(ctx context.Context) error {
	return p.pickReactOption(ctx, selectOne, `text="`+SelectOneText+`"`, SelectOneText)
}

// SelectOldStyleGreen picks "Green" in the native select by label.
func (p *SelectMenuPage) SelectOldStyleGreen(ctx context.Context) error {
	if err := p.browser.SelectOption(ctx, oldStyleSelect, OldStyleColor); err != nil {
		return err
	}
	got, err := p.browser.GetText(ctx, oldStyleOption)
	if err != nil {
		return err
	}
	if strings.TrimSpace(got) != OldStyleColor {
		return &FieldMismatch{Page: p.name, Field: oldStyleSelect, Want: OldStyleColor, Got: got}
	}
	return nil
}

// SelectMultiColors picks every color of MultiColors in the multiselect and
// closes the menu.
func (p *SelectMenuPage) SelectMultiColors(ctx context.Context) error {
	if err := p.click(ctx, multiSelect); err != nil {
		return err
	}
	if err := p.browser.Sleep(ctx, 2*p.opts.Pause); err != nil {
		return err
	}
	if err := p.browser.WaitForState(ctx, multiMenu, browser.StateVisible, p.opts.ModalTimeout); err != nil {
		return fmt.Errorf("multiselect menu did not open: %w", err)
	}

	for _, color := range MultiColors {
		if err := p.click(ctx, menuOption(color)); err != nil {
			return err
		}
		if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
			return err
		}
	}

	if err := p.click(ctx, pageHeading); err != nil {
		return err
	}
	if err := p.browser.Sleep(ctx, 2*p.opts.Pause); err != nil {
		return err
	}

	picked, err := p.multiSelected(ctx)
	if err != nil {
		return err
	}
	for _, color := range MultiColors {
		if !picked[color] {
			return &FieldMismatch{Page: p.name, Field: "multiselect", Want: color, Got: ""}
		}
	}
	return nil
}

func (p *SelectMenuPage) multiSelected(ctx context.Context) (map[string]bool, error) {
	picked := make(map[string]bool, len(MultiColors))
	for _, color := range MultiColors {
		n, err := p.browser.Count(ctx, selectedTag(color))
		if err != nil {
			return nil, err
		}
		picked[color] = n > 0
	}
	return picked, nil
}

// SelectAll performs every selection with a pause in between.
func (p *SelectMenuPage) SelectAll(ctx context.Context) error {
	for _, step := range []func(context.Context) error{
		p.SelectGroupOption,
		p.SelectOneOther,
		p.SelectOldStyleGreen,
		p.SelectMultiColors,
	} {
		if err := step(ctx); err != nil {
			return err
		}
		if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
			return err
		}
	}
	return nil
}

// Validate reads every menu back and checks the expected selections.
func (p *SelectMenuPage) Validate(ctx context.Context) (*Selections, error) {
	var sel Selections
	var err error
	if sel.SelectValue, err = p.browser.GetText(ctx, selectValue); err != nil {
		return nil, err
	}
	if sel.SelectOne, err = p.browser.GetText(ctx, selectOne); err != nil {
		return nil, err
	}
	if sel.OldStyle, err = p.browser.GetText(ctx, oldStyleOption); err != nil {
		return nil, err
	}
	sel.OldStyle = strings.TrimSpace(sel.OldStyle)
	if sel.Multi, err = p.multiSelected(ctx); err != nil {
		return nil, err
	}

	contains := func(name, text, want string) field {
		if strings.Contains(text, want) {
			return field{name, want, want}
		}
		return field{name, want, text}
	}
	fields := []field{
		contains("selectValue", sel.SelectValue, GroupOption),
		contains("selectOne", sel.SelectOne, SelectOneText),
		{"oldStyle", OldStyleColor, sel.OldStyle},
	}
	for _, color := range MultiColors {
		got := ""
		if sel.Multi[color] {
			got = color
		}
		fields = append(fields, field{"multiselect", color, got})
	}
	return &sel, p.compare(fields...)
}
