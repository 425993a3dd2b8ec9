package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// DefaultTimeout bounds loading and rendering the catalog page.
const DefaultTimeout = 30 * time.Second

// Resolver loads and parses catalog pages on an authenticated session.
type Resolver struct {
	Profile *site.Profile
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewResolver creates a Resolver for profile. A zero timeout uses DefaultTimeout.
func NewResolver(profile *site.Profile, timeout time.Duration, logger *slog.Logger) *Resolver {
	if profile == nil {
		profile = site.QiDian()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{Profile: profile, Timeout: timeout, Logger: logger}
}

// Resolve returns the catalog of bookID. No chapter pages are loaded.
func (r *Resolver) Resolve(ctx context.Context, s browser.Session, bookID int) (*types.Catalog, error) {
	if bookID <= 0 {
		return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: "book id must be positive"}
	}
	p := r.Profile
	pageURL := p.BookURL(bookID)

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if err := s.Navigate(stepCtx, pageURL); err != nil {
		return nil, r.fail(ctx, bookID, KindNavigation, fmt.Sprintf("failed to load %s", pageURL), err)
	}

	markers := append([]string{p.CatalogContainer}, p.BookNotFound...)
	matched, err := browser.WaitForAny(ctx, s, r.Timeout, markers...)
	if err != nil {
		if browser.IsTimeout(err) && ctx.Err() == nil {
			return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: "catalog did not appear", Cause: err}
		}
		return nil, r.fail(ctx, bookID, KindNavigation, "failed to inspect catalog page", err)
	}
	if slices.Contains(p.BookNotFound, matched) {
		return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: fmt.Sprintf("site reports no such book (%s)", matched)}
	}

	// The chapter list renders after its container; an empty catalog is
	// reported by Parse once this wait gives up.
	_, err = browser.WaitForAny(ctx, s, r.Timeout, p.Volume+" "+p.ChapterLink)
	if err != nil && !browser.IsTimeout(err) {
		return nil, r.fail(ctx, bookID, KindNavigation, "failed to inspect catalog page", err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("catalog resolution aborted: %w", ctx.Err())
	}

	readCtx, cancelRead := context.WithTimeout(ctx, r.Timeout)
	defer cancelRead()
	html, err := s.HTML(readCtx)
	if err != nil {
		return nil, r.fail(ctx, bookID, KindNavigation, "failed to read catalog page", err)
	}
	loc, err := s.Location(readCtx)
	if err != nil {
		r.Logger.Debug("could not read catalog page location, resolving links against book url", "url", pageURL, "error", err)
	}
	if err != nil || loc == "" {
		loc = pageURL
	}

	catalog, err := Parse(html, loc, p, bookID)
	if err != nil {
		return nil, err
	}

	r.Logger.Info("catalog resolved",
		"book_id", bookID,
		"title", catalog.Book.Title,
		"sections", catalog.SectionCount(),
		"chapters", len(catalog.Entries),
	)
	return catalog, nil
}

func (r *Resolver) fail(ctx context.Context, bookID int, kind Kind, message string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("catalog resolution aborted: %w", ctx.Err())
	}
	var catErr *Error
	if errors.As(err, &catErr) {
		return err
	}
	return &Error{Kind: kind, BookID: bookID, Message: message, Cause: err}
}
