// Package browser provides the browsing session used by the acquisition engine,
// bounded wait primitives and a chromedp-backed implementation.
package browser

import "context"

// Session is a single browsing context. Implementations must not run two
// operations concurrently; callers own the session for the duration of a step.
type Session interface {
	// Navigate loads url in the current tab and returns once the page has loaded.
	Navigate(ctx context.Context, url string) error
	// Location returns the URL of the current page.
	Location(ctx context.Context) (string, error)
	// HTML returns the rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
	// Exists reports whether selector matches a node in the current page.
	// It never waits.
	Exists(ctx context.Context, selector string) (bool, error)
	// SetCookies installs cookies into the browsing context.
	SetCookies(ctx context.Context, cookies ...Cookie) error
	// Type replaces the value of the input matched by selector.
	Type(ctx context.Context, selector, value string) error
	// Click clicks the node matched by selector.
	Click(ctx context.Context, selector string) error
}

// Cookie is a cookie to install into a session.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}
