package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// DefaultTimeout bounds loading one chapter page and waiting for its content.
const DefaultTimeout = 30 * time.Second

// Extractor loads chapter pages on an authenticated session.
type Extractor struct {
	Profile      *site.Profile
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// New creates an Extractor for profile. A zero timeout uses DefaultTimeout.
func New(profile *site.Profile, timeout time.Duration, logger *slog.Logger) *Extractor {
	if profile == nil {
		profile = site.QiDian()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		Profile:      profile,
		Timeout:      timeout,
		PollInterval: browser.DefaultPollInterval,
		Logger:       logger,
	}
}

// Extract navigates to entry's page, waits for the content to render and
// returns the normalized fragment.
func (x *Extractor) Extract(ctx context.Context, s browser.Session, entry types.CatalogEntry) (types.ContentFragment, error) {
	if entry.SourceLocator == "" {
		return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: "entry has no source locator"}
	}

	navCtx, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()
	if err := s.Navigate(navCtx, entry.SourceLocator); err != nil {
		return types.ContentFragment{}, x.fail(ctx, entry, fmt.Sprintf("failed to load %s", entry.SourceLocator), err)
	}

	var fragment types.ContentFragment
	var lastErr error
	err := browser.WaitFor(ctx, x.Timeout, x.PollInterval, func(ctx context.Context) (bool, error) {
		page, err := s.HTML(ctx)
		if err != nil {
			return false, err
		}
		fragment, lastErr = Parse(page, entry, x.Profile)
		return lastErr == nil || !errors.Is(lastErr, errNotRendered), nil
	})
	if err != nil {
		if errors.Is(err, browser.ErrWaitTimeout) {
			message := fmt.Sprintf("content did not render within %s", x.Timeout)
			var exErr *Error
			if errors.As(lastErr, &exErr) {
				message = fmt.Sprintf("%s (%s)", message, exErr.Message)
			}
			return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: message, Cause: err}
		}
		return types.ContentFragment{}, x.fail(ctx, entry, "failed to read chapter page", err)
	}
	if lastErr != nil {
		return types.ContentFragment{}, lastErr
	}

	x.Logger.Debug("chapter extracted",
		"section", entry.SectionIndex,
		"subsection", entry.SubsectionIndex,
		"title", fragment.Title,
		"bytes", len(fragment.ContentHTML),
	)
	return fragment, nil
}

func (x *Extractor) fail(ctx context.Context, entry types.CatalogEntry, message string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("extraction aborted: %w", ctx.Err())
	}
	return &Error{Kind: KindNavigation, Entry: entry, Message: message, Cause: err}
}
