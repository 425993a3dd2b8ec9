// Package catalog discovers a book's table of contents.
package catalog

import (
	"errors"
	"fmt"
)

// Kind classifies a catalog failure.
type Kind int

const (
	// KindBookNotFound means the book id does not resolve to a catalog page.
	KindBookNotFound Kind = iota + 1
	// KindEmpty means the catalog page exists but lists no chapters.
	KindEmpty
	// KindMissingMetadata means the catalog page has no title or author.
	KindMissingMetadata
	// KindNavigation means the browser failed to load the catalog page.
	KindNavigation
)

func (k Kind) String() string {
	switch k {
	case KindBookNotFound:
		return "book_not_found"
	case KindEmpty:
		return "empty"
	case KindMissingMetadata:
		return "missing_metadata"
	case KindNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// Error represents a failure to resolve a book's catalog.
type Error struct {
	Kind    Kind
	BookID  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("catalog error (%s, book %d): %s: %v", e.Kind, e.BookID, e.Message, e.Cause)
	}
	return fmt.Sprintf("catalog error (%s, book %d): %s", e.Kind, e.BookID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a catalog Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var catErr *Error
	return errors.As(err, &catErr) && catErr.Kind == kind
}
