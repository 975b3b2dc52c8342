package browser

import (
	"encoding/json"
	"strings"

	"github.com/chromedp/chromedp"
)

// Selector prefixes understood by every driver. A selector without a prefix is CSS.
const (
	xpathPrefix = "xpath="
	textPrefix  = "text="
)

// selector is a parsed selector string. CSS and XPath are kept apart because the
// DOM lookups differ; text selectors are lowered to XPath.
type selector struct {
	raw   string
	xpath bool
	expr  string
}

func parseSelector(raw string) selector {
	switch {
	case strings.HasPrefix(raw, xpathPrefix):
		return selector{raw: raw, xpath: true, expr: strings.TrimPrefix(raw, xpathPrefix)}
	case strings.HasPrefix(raw, "//"), strings.HasPrefix(raw, "(//"):
		return selector{raw: raw, xpath: true, expr: raw}
	case strings.HasPrefix(raw, textPrefix):
		return selector{raw: raw, xpath: true, expr: textXPath(strings.TrimPrefix(raw, textPrefix))}
	default:
		return selector{raw: raw, expr: raw}
	}
}

// queryOption picks the chromedp lookup strategy.
func (s selector) queryOption() chromedp.QueryOption {
	if s.xpath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// firstJS is a JavaScript expression evaluating to the first match or null.
func (s selector) firstJS() string {
	if s.xpath {
		return "document.evaluate(" + jsString(s.expr) +
			", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
	}
	return "document.querySelector(" + jsString(s.expr) + ")"
}

// allJS is a JavaScript expression evaluating to an array of all matches.
func (s selector) allJS() string {
	if s.xpath {
		return "(() => { const r = document.evaluate(" + jsString(s.expr) +
			", document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null); const out = [];" +
			" for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i)); return out; })()"
	}
	return "Array.from(document.querySelectorAll(" + jsString(s.expr) + "))"
}

// withElement wraps body in a function where el is bound to the first match.
// body runs only when the element exists; otherwise the script throws.
func (s selector) withElement(body string) string {
	return "(() => { const el = " + s.firstJS() + "; if (!el) throw new Error(" +
		jsString("no element matches "+s.raw) + "); " + body + " })()"
}

// isVisibleJS is a predicate mirroring the usual definition of visibility:
// a non-empty bounding box and no visibility:hidden.
const isVisibleJS = `(el) => { if (!el || !el.isConnected) return false;` +
	` if (getComputedStyle(el).visibility === 'hidden') return false;` +
	` const r = el.getBoundingClientRect(); return r.width > 0 && r.height > 0; }`

// stateJS returns a boolean expression that holds when the first match is in state.
func (s selector) stateJS(state ElementState) string {
	visible := "(" + isVisibleJS + ")(" + s.firstJS() + ")"
	switch state {
	case StateAttached:
		return "!!(" + s.firstJS() + ")"
	case StateDetached:
		return "!(" + s.firstJS() + ")"
	case StateHidden:
		return "!" + visible
	default:
		return visible
	}
}

// setValueJS assigns value through the native setter so framework-controlled
// inputs see the change, then dispatches input and change events.
const setValueJS = `(el, value) => {` +
	` const proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;` +
	` const desc = Object.getOwnPropertyDescriptor(proto, 'value');` +
	` if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }` +
	` el.dispatchEvent(new Event('input', { bubbles: true }));` +
	` el.dispatchEvent(new Event('change', { bubbles: true })); }`

// selectByLabelJS picks the option whose trimmed label or text equals label.
const selectByLabelJS = `(el, label) => {` +
	` const opt = Array.from(el.options || []).find(o => (o.label || o.text).trim() === label);` +
	` if (!opt) throw new Error('no option labelled ' + label);` +
	` el.value = opt.value; opt.selected = true;` +
	` el.dispatchEvent(new Event('input', { bubbles: true }));` +
	` el.dispatchEvent(new Event('change', { bubbles: true })); }`

// textXPath matches the innermost element whose normalized text contains text.
// A double-quoted text matches exactly.
func textXPath(text string) string {
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		lit := xpathLiteral(text[1 : len(text)-1])
		return "//*[normalize-space(.)=" + lit + "][not(.//*[normalize-space(.)=" + lit + "])]"
	}
	lit := xpathLiteral(text)
	return "//*[contains(normalize-space(.)," + lit + ")][not(.//*[contains(normalize-space(.)," + lit + ")])]"
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}

// jsString encodes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
