// Package assemble folds extracted chapters into the hierarchical Document.
package assemble

import (
	"fmt"

	"github.com/jonathan/qidian-downloader/internal/types"
)

// Builder grows a Document one chapter at a time, in catalog order.
// A new Section starts whenever an entry's SectionIndex differs from the previous one.
type Builder struct {
	doc         *types.Document
	lastSection int
	hasSection  bool
	subsections int
}

// NewBuilder starts a Document for book.
func NewBuilder(book types.BookInfo) *Builder {
	return &Builder{
		doc: &types.Document{
			Title:    book.Title,
			Author:   book.Author,
			Sections: []types.Section{},
		},
	}
}

// Add appends fragment as the next subsection. The subsection title is the
// fragment title, or the entry title when the fragment has none.
func (b *Builder) Add(entry types.CatalogEntry, fragment types.ContentFragment) {
	if !b.hasSection || entry.SectionIndex != b.lastSection {
		b.doc.Sections = append(b.doc.Sections, types.Section{
			Title:       entry.SectionTitle,
			Subsections: []types.Subsection{},
		})
		b.lastSection = entry.SectionIndex
		b.hasSection = true
	}

	title := fragment.Title
	if title == "" {
		title = entry.Title
	}

	current := &b.doc.Sections[len(b.doc.Sections)-1]
	current.Subsections = append(current.Subsections, types.Subsection{
		Title:       title,
		ContentHTML: fragment.ContentHTML,
	})
	b.subsections++
}

// Len returns the number of subsections added so far.
func (b *Builder) Len() int {
	return b.subsections
}

// Document returns the Document built so far.
func (b *Builder) Document() *types.Document {
	return b.doc
}

// Assemble builds the Document from a catalog and fragments aligned 1:1 with it.
// It performs no I/O; callers must only pass complete fragment sequences.
func Assemble(book types.BookInfo, entries []types.CatalogEntry, fragments []types.ContentFragment) *types.Document {
	if len(entries) != len(fragments) {
		panic(fmt.Sprintf("assemble: %d catalog entries but %d fragments", len(entries), len(fragments)))
	}
	b := NewBuilder(book)
	for i, entry := range entries {
		b.Add(entry, fragments[i])
	}
	return b.Document()
}
