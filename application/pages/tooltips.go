package pages

import (
	"context"
	"errors"

	"demoqa-e2e/application/session"
	"demoqa-e2e/infrastructure/browser"
)

// Tooltip texts shown by the tool tips page.
const (
	ButtonTooltip    = "You hovered over the Button"
	TextFieldTooltip = "You hovered over the text field"
	ContraryTooltip  = "You hovered over the Contrary"
	SectionTooltip   = "You hovered over the 1.10.32"
)

// ErrNoTooltip is returned when no tooltip candidate becomes visible.
var ErrNoTooltip = errors.New("no tooltip found with any of the selectors")

// TooltipSelectors are tried in order when looking for the shown tooltip.
var TooltipSelectors = []string{
	".tooltip-inner",
	".tooltip .tooltip-inner",
	`[role="tooltip"]`,
	".bs-tooltip-inner",
	".tooltip",
	`[class*="tooltip"]`,
}

const (
	tooltipButton    = "#toolTipButton"
	tooltipTextField = "#toolTipTextField"
	contraryLink     = "xpath=//a[contains(normalize-space(.),'Contrary')]"
	sectionLink      = "xpath=//a[contains(normalize-space(.),'1.10.32')]"
)

// ToolTipsPage drives /tool-tips.
type ToolTipsPage struct {
	page
}

// NewToolTipsPage creates the tool tips page object. opts may be nil.
func NewToolTipsPage(s *session.Session, opts *Options) *ToolTipsPage {
	return &ToolTipsPage{page: newPage(s, "tool-tips", opts)}
}

// Tooltips holds the text of every tooltip on the page.
type Tooltips struct {
	Button    string
	TextField string
	Contrary  string
	Section   string
}

// Open navigates to the page.
func (p *ToolTipsPage) Open(ctx context.Context) error {
	return p.open(ctx, "/tool-tips", tooltipButton)
}

// waitForTooltip returns the first candidate selector that becomes visible.
func (p *ToolTipsPage) waitForTooltip(ctx context.Context) (string, error) {
	for _, sel := range TooltipSelectors {
		if err := p.browser.WaitForState(ctx, sel, browser.StateVisible, p.opts.TooltipTimeout); err == nil {
			return sel, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", ErrNoTooltip
}

// TooltipText waits for a tooltip and returns its text.
func (p *ToolTipsPage) TooltipText(ctx context.Context) (string, error) {
	sel, err := p.waitForTooltip(ctx)
	if err != nil {
		return "", err
	}
	return p.browser.GetText(ctx, sel)
}

// clearTooltip moves the mouse to the heading and waits for tooltips to go.
func (p *ToolTipsPage) clearTooltip(ctx context.Context) error {
	if err := p.browser.Hover(ctx, pageHeading); err != nil {
		return err
	}
	if err := p.browser.Sleep(ctx, p.opts.Pause); err != nil {
		return err
	}
	for _, sel := range TooltipSelectors {
		// A tooltip that never existed is as good as hidden.
		_ = p.browser.WaitForState(ctx, sel, browser.StateHidden, p.opts.TooltipTimeout)
	}
	return ctx.Err()
}

// hoverText hovers target and returns the tooltip it raises.
func (p *ToolTipsPage) hoverText(ctx context.Context, target string) (string, error) {
	if err := p.clearTooltip(ctx); err != nil {
		return "", err
	}
	if err := p.browser.Hover(ctx, target); err != nil {
		return "", err
	}
	text, err := p.TooltipText(ctx)
	if err != nil {
		return "", err
	}
	return text, p.clearTooltip(ctx)
}

// HoverButton returns the tooltip of the button.
func (p *ToolTipsPage) HoverButton(ctx context.Context) (string, error) {
	return p.hoverText(ctx, tooltipButton)
}

// HoverTextField returns the tooltip of the text field.
func (p *ToolTipsPage) HoverTextField(ctx context.Context) (string, error) {
	return p.hoverText(ctx, tooltipTextField)
}

// HoverContrary returns the tooltip of the "Contrary" link.
func (p *ToolTipsPage) HoverContrary(ctx context.Context) (string, error) {
	return p.hoverText(ctx, contraryLink)
}

// HoverSection returns the tooltip of the "1.10.32" link.
func (p *ToolTipsPage) HoverSection(ctx context.Context) (string, error) {
	return p.hoverText(ctx, sectionLink)
}

// All hovers every target in turn.
func (p *ToolTipsPage) All(ctx context.Context) (*Tooltips, error) {
	var t Tooltips
	steps := []struct {
		hover func(context.Context) (string, error)
		dst   *string
	}{
		{p.HoverButton, &t.Button},
		{p.HoverTextField, &t.TextField},
		{p.HoverContrary, &t.Contrary},
		{p.HoverSection, &t.Section},
	}
	for i, s := range steps {
		if i > 0 {
			if err := p.browser.Sleep(ctx, 2*p.opts.Pause); err != nil {
				return nil, err
			}
		}
		text, err := s.hover(ctx)
		if err != nil {
			return nil, err
		}
		*s.dst = text
	}
	return &t, nil
}

// Validate hovers every target and checks the tooltip texts.
func (p *ToolTipsPage) Validate(ctx context.Context) (*Tooltips, error) {
	t, err := p.All(ctx)
	if err != nil {
		return nil, err
	}
	return t, p.compare(
		field{"button", ButtonTooltip, t.Button},
		field{"textField", TextFieldTooltip, t.TextField},
		field{"contrary", ContraryTooltip, t.Contrary},
		field{"section", SectionTooltip, t.Section},
	)
}
