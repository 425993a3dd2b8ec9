package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

// DefaultUserAgent replaces the HeadlessChrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// cookieLifetime is the expiry given to injected cookies.
const cookieLifetime = 30 * 24 * time.Hour

// LaunchOptions configures the browser started by Launch.
type LaunchOptions struct {
	Headless  bool
	UserAgent string
	// NavRate limits navigations per second. Zero disables pacing.
	NavRate  float64
	NavBurst int
	Logger   *slog.Logger
}

// DefaultLaunchOptions returns headless defaults with two navigations per second.
func DefaultLaunchOptions() *LaunchOptions {
	return &LaunchOptions{
		Headless:  true,
		UserAgent: DefaultUserAgent,
		NavRate:   2,
		NavBurst:  2,
	}
}

// ChromeSession is a Session backed by one chromedp tab.
// Requires Chrome/Chromium to be installed on the system.
type ChromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu      sync.Mutex
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ Session = (*ChromeSession)(nil)

// Launch starts a browser process and opens the tab used for the whole run.
// The browser is terminated when ctx is cancelled or Close is called.
func Launch(ctx context.Context, opts *LaunchOptions) (*ChromeSession, error) {
	if opts == nil {
		opts = DefaultLaunchOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(userAgent),
		)...,
	)

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "chromedp")
		}),
	)

	// Running without actions starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.NavRate > 0 {
		burst := opts.NavBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.NavRate), burst)
	}

	logger.Debug("browser started", "headless", opts.Headless)

	return &ChromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Close shuts down the tab and the browser process.
func (s *ChromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

// run executes actions on the tab. ctx bounds the call: cancelling it aborts
// the in-flight actions without closing the tab.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate implements Session.
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	s.logger.Debug("navigate", "url", url)
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Location implements Session.
func (s *ChromeSession) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// HTML implements Session.
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}

// Exists implements Session.
func (s *ChromeSession) Exists(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, err
	}
	var ok bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", quoted)
	if err := s.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return false, fmt.Errorf("query %s: %w", selector, err)
	}
	return ok, nil
}

// SetCookies implements Session.
func (s *ChromeSession) SetCookies(ctx context.Context, cookies ...Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		expires := cdp.TimeSinceEpoch(time.Now().Add(cookieLifetime))
		for _, c := range cookies {
			path := c.Path
			if path == "" {
				path = "/"
			}
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(path).
				WithExpires(&expires).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// Type implements Session.
func (s *ChromeSession) Type(ctx context.Context, selector, value string) error {
	err := s.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// Click implements Session.
func (s *ChromeSession) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}
