// Package extract loads chapter pages and extracts their normalized title and content.
package extract

import (
	"errors"
	"fmt"

	"github.com/jonathan/qidian-downloader/internal/types"
)

// Kind classifies an extraction failure.
type Kind int

const (
	// KindContentMissing means the content region is absent, locked or empty.
	KindContentMissing Kind = iota + 1
	// KindSessionExpired means the page shows the session is no longer authenticated.
	KindSessionExpired
	// KindNavigation means the browser failed to load the chapter page.
	KindNavigation
)

func (k Kind) String() string {
	switch k {
	case KindContentMissing:
		return "content_missing"
	case KindSessionExpired:
		return "session_expired"
	case KindNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// errNotRendered marks content failures that may clear once the page finishes rendering.
var errNotRendered = errors.New("content not rendered")

// Error represents a failure to extract one catalog entry.
type Error struct {
	Kind    Kind
	Entry   types.CatalogEntry
	Message string
	Cause   error
}

func (e *Error) Error() string {
	where := fmt.Sprintf("%d.%d %q", e.Entry.SectionIndex+1, e.Entry.SubsectionIndex+1, e.Entry.Title)
	if e.Cause != nil {
		return fmt.Sprintf("extract error (%s, chapter %s): %s: %v", e.Kind, where, e.Message, e.Cause)
	}
	return fmt.Sprintf("extract error (%s, chapter %s): %s", e.Kind, where, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an extraction Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var exErr *Error
	return errors.As(err, &exErr) && exErr.Kind == kind
}
