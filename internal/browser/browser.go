// Package browser exposes the small slice of a browser the admin console
// automation needs: load a page, find elements by CSS selector, read and
// manipulate them.
package browser

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("browser is closed")

// Driver is one browser page.
//
// note: fault injection point
type Driver interface {
	// Get loads url and waits for the load event.
	Get(ctx context.Context, url string) error
	Title() (string, error)
	// URL is the address of the current page after redirects.
	URL() string
	// Content is the serialized DOM of the current page.
	Content() (string, error)
	// FindAll returns every element matching a CSS selector, in document order.
	FindAll(selector string) ([]Element, error)
	// Describe identifies the browser for status reports.
	Describe() string
	Close() error
}

// Element is a DOM element found through a Driver.
type Element interface {
	// Text is the rendered text of the element, trimmed.
	Text() (string, error)
	// Attribute returns "" when the attribute is absent.
	Attribute(name string) (string, error)
	// Click clicks the element and waits for any navigation it starts.
	Click() error
	Clear() error
	// Type sends text as key presses.
	Type(text string) error
	// SelectByLabel picks the option of a <select> by its visible text.
	SelectByLabel(label string) error
	FindAll(selector string) ([]Element, error)
}

// Launcher starts a browser.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (Driver, error)

func (f LauncherFunc) Launch(ctx context.Context) (Driver, error) {
	return f(ctx)
}
