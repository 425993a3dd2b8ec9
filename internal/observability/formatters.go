// Package observability provides logging setup and formatted console output for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"

	"github.com/jonathan/qidian-downloader/internal/engine"
	"github.com/jonathan/qidian-downloader/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxSectionsToShow is the number of volumes listed in a document summary
	maxSectionsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Widths are
// measured in terminal cells so CJK text stays aligned.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", fit(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fit(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// fit truncates s to width cells and pads it on the right.
func fit(s string, width int) string {
	s = runewidth.Truncate(s, width, "...")
	return runewidth.FillRight(s, width)
}

// PrintDocumentSummary outputs the acquired book and where it was written.
func (p *Printer) PrintDocumentSummary(doc *types.Document, path string) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", doc.Title))
	sb.WriteString(fmt.Sprintf("Author:   %s\n", doc.Author))
	sb.WriteString(fmt.Sprintf("Volumes:  %d\n", len(doc.Sections)))
	sb.WriteString(fmt.Sprintf("Chapters: %d\n", doc.SubsectionCount()))
	if path != "" {
		sb.WriteString(fmt.Sprintf("Output:   %s\n", path))
	}

	if len(doc.Sections) > 0 {
		sb.WriteString("\n")
		count := min(len(doc.Sections), maxSectionsToShow)
		for i := 0; i < count; i++ {
			section := doc.Sections[i]
			sb.WriteString(fmt.Sprintf("  • %s (%d)\n", section.Title, len(section.Subsections)))
		}
		if len(doc.Sections) > maxSectionsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more volumes\n", len(doc.Sections)-maxSectionsToShow))
		}
	}

	p.printBox("DOWNLOADED BOOK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCatalog outputs the table of contents as a table.
func (p *Printer) PrintCatalog(cat *types.Catalog) {
	if cat == nil {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s / %s", cat.Book.Title, cat.Book.Author))
	t.AppendHeader(table.Row{"#", "Volume", "Chapter", "URL"})

	for i, entry := range cat.Entries {
		t.AppendRow(table.Row{i + 1, entry.SectionTitle, entry.Title, entry.SourceLocator})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d volumes", cat.SectionCount()), fmt.Sprintf("%d chapters", len(cat.Entries)), ""})
	t.Render()
}

// PrintProgress outputs one line per state change or extracted chapter.
// The final event of a run is prefixed with its state.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event engine.ProgressEvent) {
	if event.State == engine.StateExtracting && event.Total > 0 && event.Index > 0 {
		width := len(fmt.Sprint(event.Total))
		fmt.Fprintf(p.out, "  [%*d/%d] %s\n", width, event.Index, event.Total, event.Title)
		return
	}
	if event.State.Terminal() {
		fmt.Fprintf(p.out, "%s: %s\n", event.State, event.Message)
		return
	}
	fmt.Fprintf(p.out, "%s\n", event.Message)
}
