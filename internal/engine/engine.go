// Package engine drives one acquisition run: authenticate, resolve the
// catalog, extract every chapter in order and assemble the Document.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/qidian-downloader/internal/assemble"
	"github.com/jonathan/qidian-downloader/internal/auth"
	"github.com/jonathan/qidian-downloader/internal/browser"
	"github.com/jonathan/qidian-downloader/internal/catalog"
	"github.com/jonathan/qidian-downloader/internal/extract"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// Authenticator logs a session in.
type Authenticator interface {
	Authenticate(ctx context.Context, s browser.Session, creds types.Credentials) error
}

// CatalogResolver produces the table of contents for a book.
type CatalogResolver interface {
	Resolve(ctx context.Context, s browser.Session, bookID int) (*types.Catalog, error)
}

// ContentExtractor produces the fragment for one catalog entry.
type ContentExtractor interface {
	Extract(ctx context.Context, s browser.Session, entry types.CatalogEntry) (types.ContentFragment, error)
}

// Options configures the default stages built by NewForProfile.
type Options struct {
	AuthTimeout    time.Duration
	CatalogTimeout time.Duration
	ContentTimeout time.Duration
	Logger         *slog.Logger
	OnProgress     ProgressCallback
}

// Engine runs the acquisition stages in sequence on one session.
// An Engine holds no per-run state and may be reused.
type Engine struct {
	Auth       Authenticator
	Catalog    CatalogResolver
	Extractor  ContentExtractor
	Logger     *slog.Logger
	OnProgress ProgressCallback
}

// New creates an Engine from explicit stages.
func New(a Authenticator, c CatalogResolver, x ContentExtractor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Auth: a, Catalog: c, Extractor: x, Logger: logger}
}

// NewForProfile wires the browser-backed stages for profile. It fails when the
// profile lacks a URL or selector one of the stages needs.
func NewForProfile(profile *site.Profile, opts Options) (*Engine, error) {
	if profile == nil {
		return nil, errors.New("no site profile")
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site profile: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := New(
		auth.New(profile, opts.AuthTimeout, logger),
		catalog.NewResolver(profile, opts.CatalogTimeout, logger),
		extract.New(profile, opts.ContentTimeout, logger),
		logger,
	)
	e.OnProgress = opts.OnProgress
	return e, nil
}

// run carries the state of a single Run call.
type run struct {
	engine *Engine
	id     string
	state  State
	logger *slog.Logger
}

func (e *Engine) newRun(bookID int) *run {
	id := uuid.New().String()
	return &run{
		engine: e,
		id:     id,
		state:  StateIdle,
		logger: e.Logger.With("run_id", id, "book_id", bookID),
	}
}

// Run acquires book bookID on s using creds. It returns a complete Document
// or a *RunError; no partial Document is ever returned.
func (e *Engine) Run(ctx context.Context, s browser.Session, creds types.Credentials, bookID int) (*types.Document, error) {
	r := e.newRun(bookID)
	cat, err := r.resolve(ctx, s, creds, bookID)
	if err != nil {
		return nil, err
	}

	total := len(cat.Entries)
	r.transition(StateExtracting, fmt.Sprintf("extracting %d chapters of %q", total, cat.Book.Title))
	builder := assemble.NewBuilder(cat.Book)
	for i, entry := range cat.Entries {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(i, err)
		}
		fragment, err := e.Extractor.Extract(ctx, s, entry)
		if err != nil {
			return nil, r.fail(i, err)
		}
		builder.Add(entry, fragment)
		r.chapter(builder.Len(), total, builder.Document())
	}

	r.transition(StateAssembling, "assembling document")
	doc := builder.Document()
	if got := doc.SubsectionCount(); got != total {
		return nil, r.fail(-1, fmt.Errorf("assembled %d chapters, catalog has %d", got, total))
	}

	r.transition(StateDone, fmt.Sprintf("acquired %d sections, %d chapters", len(doc.Sections), total))
	return doc, nil
}

// TableOfContents authenticates and resolves the catalog of bookID without
// loading any chapter. Errors are *RunError as for Run.
func (e *Engine) TableOfContents(ctx context.Context, s browser.Session, creds types.Credentials, bookID int) (*types.Catalog, error) {
	r := e.newRun(bookID)
	cat, err := r.resolve(ctx, s, creds, bookID)
	if err != nil {
		return nil, err
	}
	r.transition(StateDone, fmt.Sprintf("resolved %d sections, %d chapters", cat.SectionCount(), len(cat.Entries)))
	return cat, nil
}

// resolve runs the stages up to and including catalog resolution.
func (r *run) resolve(ctx context.Context, s browser.Session, creds types.Credentials, bookID int) (*types.Catalog, error) {
	if err := r.preflight(s, creds, bookID); err != nil {
		return nil, r.fail(-1, err)
	}

	r.transition(StateAuthenticating, fmt.Sprintf("authenticating with %s login", creds.Method()))
	if err := r.engine.Auth.Authenticate(ctx, s, creds); err != nil {
		return nil, r.fail(-1, err)
	}

	r.transition(StateResolvingCatalog, fmt.Sprintf("resolving catalog of book %d", bookID))
	cat, err := r.engine.Catalog.Resolve(ctx, s, bookID)
	if err != nil {
		return nil, r.fail(-1, err)
	}
	if err := checkCatalog(cat, bookID); err != nil {
		return nil, r.fail(-1, err)
	}
	return cat, nil
}

// preflight rejects a run before any navigation takes place.
func (r *run) preflight(s browser.Session, creds types.Credentials, bookID int) error {
	if s == nil {
		return errors.New("no browser session")
	}
	if err := types.ValidateCredentials(creds); err != nil {
		return err
	}
	if bookID <= 0 {
		return &catalog.Error{Kind: catalog.KindBookNotFound, BookID: bookID, Message: "book id must be a positive integer"}
	}
	return nil
}

// checkCatalog enforces what the document needs from a resolver result.
func checkCatalog(cat *types.Catalog, bookID int) error {
	if cat == nil || len(cat.Entries) == 0 {
		return &catalog.Error{Kind: catalog.KindEmpty, BookID: bookID, Message: "catalog has no chapters"}
	}
	if cat.Book.Title == "" || cat.Book.Author == "" {
		return &catalog.Error{Kind: catalog.KindMissingMetadata, BookID: bookID, Message: "book title or author is missing"}
	}
	return nil
}

func (r *run) transition(next State, message string) {
	r.logger.Info(message, "from", r.state.String(), "to", next.String())
	r.state = next
	r.emit(ProgressEvent{State: next, Message: message})
}

func (r *run) chapter(index, total int, doc *types.Document) {
	section := doc.Sections[len(doc.Sections)-1]
	title := section.Subsections[len(section.Subsections)-1].Title
	r.logger.Debug("chapter done", "index", index, "total", total, "title", title)
	r.emit(ProgressEvent{
		State:   StateExtracting,
		Message: fmt.Sprintf("extracted %d/%d: %s", index, total, title),
		Index:   index,
		Total:   total,
		Title:   title,
	})
}

func (r *run) fail(index int, err error) error {
	runErr := &RunError{State: r.state, Index: index, Err: err}
	r.logger.Error("run failed", "state", r.state.String(), "index", index, "error", err)
	r.state = StateFailed
	r.emit(ProgressEvent{State: StateFailed, Message: runErr.Error()})
	return runErr
}

func (r *run) emit(event ProgressEvent) {
	if r.engine.OnProgress == nil {
		return
	}
	event.RunID = r.id
	r.engine.OnProgress(event)
}
