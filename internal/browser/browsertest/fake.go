// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/qidian-downloader/internal/browser"
)

// BlankPage is served for URLs without a registered page.
const BlankPage = "<html><head></head><body></body></html>"

// Session is a fake browser.Session serving canned pages. Selector queries
// run against the current page with goquery.
type Session struct {
	mu sync.Mutex

	// Pages maps URLs to the HTML served for them.
	Pages map[string]string
	// NavigateErrors maps URLs to errors returned by Navigate.
	NavigateErrors map[string]error
	// ClickTargets maps selectors to the URL loaded after clicking them.
	ClickTargets map[string]string
	// Handler, when set, builds the HTML for a URL and takes precedence over Pages.
	Handler func(s *Session, url string) (string, error)

	current     string
	html        string
	cookies     []browser.Cookie
	typed       map[string]string
	navigations []string
	clicks      []string
}

var _ browser.Session = (*Session)(nil)

// New returns a fake session serving pages.
func New(pages map[string]string) *Session {
	if pages == nil {
		pages = map[string]string{}
	}
	return &Session{
		Pages:          pages,
		NavigateErrors: map[string]error{},
		ClickTargets:   map[string]string{},
		typed:          map[string]string{},
		html:           BlankPage,
	}
}

func (s *Session) load(url string) error {
	if err, ok := s.NavigateErrors[url]; ok {
		return err
	}
	s.navigations = append(s.navigations, url)
	s.current = url
	if s.Handler != nil {
		html, err := s.Handler(s, url)
		if err != nil {
			return err
		}
		s.html = html
		return nil
	}
	if html, ok := s.Pages[url]; ok {
		s.html = html
		return nil
	}
	s.html = BlankPage
	return nil
}

// Navigate implements browser.Session.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(url)
}

// Location implements browser.Session.
func (s *Session) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

// HTML implements browser.Session.
func (s *Session) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, nil
}

// Exists implements browser.Session.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	html := s.html
	s.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, err
	}
	return doc.Find(selector).Length() > 0, nil
}

// SetCookies implements browser.Session.
func (s *Session) SetCookies(ctx context.Context, cookies ...browser.Cookie) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = append(s.cookies, cookies...)
	return nil
}

// Type implements browser.Session.
func (s *Session) Type(ctx context.Context, selector, value string) error {
	if ok, err := s.Exists(ctx, selector); err != nil || !ok {
		if err != nil {
			return err
		}
		return fmt.Errorf("no node matches %s", selector)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed[selector] = value
	return nil
}

// Click implements browser.Session.
func (s *Session) Click(ctx context.Context, selector string) error {
	if ok, err := s.Exists(ctx, selector); err != nil || !ok {
		if err != nil {
			return err
		}
		return fmt.Errorf("no node matches %s", selector)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks = append(s.clicks, selector)
	if target, ok := s.ClickTargets[selector]; ok {
		return s.load(target)
	}
	return nil
}

// Cookies returns the cookies installed so far.
func (s *Session) Cookies() []browser.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]browser.Cookie(nil), s.cookies...)
}

// Cookie returns the value of the named cookie, if installed.
func (s *Session) Cookie(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Typed returns the value typed into selector.
func (s *Session) Typed(selector string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed[selector]
}

// Navigations returns every URL loaded, in order.
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Clicks returns every selector clicked, in order.
func (s *Session) Clicks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clicks...)
}
