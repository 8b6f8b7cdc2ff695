package console

import (
	"fmt"
	"strings"

	"baikalctl/internal/browser"
	"baikalctl/internal/components/telemetry"

	"github.com/antzucaro/matchr"
)

const (
	report_locator_find   = "locator.find"
	report_locator_popups = "locator.check-popups"
)

type findOptions struct {
	parent      browser.Element
	withText    string
	hasText     bool
	allowNone   bool
	click       bool
	withClasses []string
}

type findOption func(o *findOptions)

// under scopes the lookup to the descendants of parent.
func under(parent browser.Element) findOption {
	return func(o *findOptions) {
		o.parent = parent
	}
}

// withText keeps only elements whose visible text is exactly text.
func withText(text string) findOption {
	return func(o *findOptions) {
		o.withText = text
		o.hasText = true
	}
}

func allowNone() findOption {
	return func(o *findOptions) {
		o.allowNone = true
	}
}

// andClick clicks the first match.
func andClick() findOption {
	return func(o *findOptions) {
		o.click = true
	}
}

func withClasses(classes ...string) findOption {
	return func(o *findOptions) {
		o.withClasses = classes
	}
}

func (o findOptions) describe(selector string) string {
	if o.hasText {
		return fmt.Sprintf("selector=%q with_text=%q", selector, o.withText)
	}
	return fmt.Sprintf("selector=%q", selector)
}

// locator finds elements on the current page of a driver. Every failure is an
// ErrInterfaceFailure.
type locator struct {
	driver browser.Driver
	tel    telemetry.API
	model  PageModel
}

func (l locator) query(selector string, o findOptions) ([]browser.Element, error) {
	if o.parent != nil {
		return o.parent.FindAll(selector)
	}
	if l.driver == nil {
		return nil, browser.ErrClosed
	}
	return l.driver.FindAll(selector)
}

// closest returns the candidate text most similar to want, used to point at
// a renamed label.
func closest(candidates []string, want string) string {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := matchr.JaroWinkler(c, want, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

func (l locator) findElements(name, selector string, opts ...findOption) ([]browser.Element, error) {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}

	elements, err := l.query(selector, o)
	if err != nil {
		l.tel.ReportBroken(report_locator_find, err, name, selector)
		return nil, interfaceFailure("%s lookup failed: %s: %v", name, o.describe(selector), err)
	}

	var texts []string
	if o.hasText {
		matched := make([]browser.Element, 0, len(elements))
		for _, e := range elements {
			text, err := e.Text()
			if err != nil {
				return nil, interfaceFailure("%s text unreadable: %s: %v", name, o.describe(selector), err)
			}
			if text == o.withText {
				matched = append(matched, e)
				continue
			}
			texts = append(texts, text)
		}
		elements = matched
	}

	if len(elements) == 0 {
		if o.allowNone {
			return nil, nil
		}
		err := interfaceFailure("%s not found: %s", name, o.describe(selector))
		if near := closest(texts, o.withText); near != "" {
			err = fmt.Errorf("%w: closest=%q", err, near)
		}
		l.tel.ReportBroken(report_locator_find, name, selector, o.withText)
		return nil, err
	}

	if o.click {
		if err := elements[0].Click(); err != nil {
			return nil, interfaceFailure("%s click failed: %s: %v", name, o.describe(selector), err)
		}
	}
	return elements, nil
}

func (l locator) findElement(name, selector string, opts ...findOption) (browser.Element, error) {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}

	elements, err := l.query(selector, o)
	if err != nil {
		l.tel.ReportBroken(report_locator_find, err, name, selector)
		return nil, interfaceFailure("%s lookup failed: %s: %v", name, o.describe(selector), err)
	}
	if len(elements) == 0 {
		l.tel.ReportBroken(report_locator_find, name, selector)
		return nil, interfaceFailure("%s not found: %s", name, o.describe(selector))
	}
	element := elements[0]

	if o.hasText {
		text, err := element.Text()
		if err != nil {
			return nil, interfaceFailure("%s text unreadable: %s: %v", name, o.describe(selector), err)
		}
		if text != o.withText {
			return nil, interfaceFailure("%s text mismatch: expected=%q got=%q", name, o.withText, text)
		}
	}

	if len(o.withClasses) > 0 {
		attr, err := element.Attribute("class")
		if err != nil {
			return nil, interfaceFailure("%s class unreadable: %s: %v", name, o.describe(selector), err)
		}
		classes := strings.Fields(attr)
		for _, want := range o.withClasses {
			found := false
			for _, c := range classes {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return nil, interfaceFailure("%s expected class not found: expected=%s classes=%v %s", name, want, classes, o.describe(selector))
			}
		}
	}
	return element, nil
}

// clickButton clicks the first button with the given text, or the only match
// of selector when no text is given.
func (l locator) clickButton(name, selector string, opts ...findOption) error {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasText {
		_, err := l.findElements(name, selector, append(opts, andClick())...)
		return err
	}
	element, err := l.findElement(name, selector, opts...)
	if err != nil {
		return err
	}
	if err := element.Click(); err != nil {
		return interfaceFailure("%s click failed: %v", name, err)
	}
	return nil
}

// setText clears a form field, then types text unless it is empty.
func (l locator) setText(name, selector, text string) error {
	element, err := l.findElement(name, selector)
	if err != nil {
		return err
	}
	if err := element.Clear(); err != nil {
		return interfaceFailure("%s clear failed: %v", name, err)
	}
	if text == "" {
		return nil
	}
	if err := element.Type(text); err != nil {
		return interfaceFailure("%s type failed: %v", name, err)
	}
	return nil
}

// checkPopups returns the text of every message banner on the page. When
// requireNone is set any banner is an ErrUnexpectedServerResponse.
func (l locator) checkPopups(requireNone bool) ([]string, error) {
	messages, err := l.findElements("popup messages", l.model.PopupMessages, allowNone())
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(messages))
	for _, m := range messages {
		text, err := m.Text()
		if err != nil {
			return nil, interfaceFailure("popup message unreadable: %v", err)
		}
		texts = append(texts, text)
	}
	if len(texts) > 0 && requireNone {
		message := strings.ReplaceAll(strings.Join(texts, "\n"), "\n", ": ")
		l.tel.ReportWarning(report_locator_popups, message)
		return texts, fmt.Errorf("%w: %s", ErrUnexpectedServerResponse, message)
	}
	return texts, nil
}
