package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// Parse builds the catalog of bookID from the rendered catalog page.
// Entries keep page order; volumes without chapters get no section index.
// Chapter hrefs are resolved against pageURL.
func Parse(html, pageURL string, p *site.Profile, bookID int) (*types.Catalog, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: "failed to parse catalog page", Cause: err}
	}

	for _, sel := range p.BookNotFound {
		if doc.Find(sel).Length() > 0 {
			return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: fmt.Sprintf("site reports no such book (%s)", sel)}
		}
	}
	if doc.Find(p.CatalogContainer).Length() == 0 {
		return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: "page has no catalog"}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &Error{Kind: KindBookNotFound, BookID: bookID, Message: fmt.Sprintf("invalid page URL %q", pageURL), Cause: err}
	}

	var entries []types.CatalogEntry
	sectionIndex := 0
	doc.Find(p.Volume).Each(func(_ int, volume *goquery.Selection) {
		sectionTitle := volumeTitle(volume, p)
		if sectionTitle == "" {
			sectionTitle = fmt.Sprintf("Volume %d", sectionIndex+1)
		}

		subsectionIndex := 0
		volume.Find(p.ChapterLink).Each(func(_ int, link *goquery.Selection) {
			href := strings.TrimSpace(link.AttrOr("href", ""))
			if href == "" || strings.HasPrefix(href, "javascript:") || href == "#" {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}

			title := cleanText(link.Text())
			if title == "" {
				title = cleanText(link.AttrOr("title", ""))
			}

			entries = append(entries, types.CatalogEntry{
				SectionIndex:    sectionIndex,
				SubsectionIndex: subsectionIndex,
				SectionTitle:    sectionTitle,
				Title:           title,
				SourceLocator:   base.ResolveReference(ref).String(),
			})
			subsectionIndex++
		})

		if subsectionIndex > 0 {
			sectionIndex++
		}
	})

	if len(entries) == 0 {
		return nil, &Error{Kind: KindEmpty, BookID: bookID, Message: "catalog lists no chapters"}
	}

	book := types.BookInfo{
		ID:     bookID,
		Title:  cleanText(doc.Find(p.BookTitle).First().Text()),
		Author: cleanText(doc.Find(p.BookAuthor).First().Text()),
	}
	if book.Title == "" || book.Author == "" {
		return nil, &Error{
			Kind:    KindMissingMetadata,
			BookID:  bookID,
			Message: fmt.Sprintf("catalog page is missing metadata (title=%q, author=%q)", book.Title, book.Author),
		}
	}

	return &types.Catalog{Book: book, Entries: entries}, nil
}

// volumeTitle returns the volume heading without badges and counters.
func volumeTitle(volume *goquery.Selection, p *site.Profile) string {
	heading := volume.Find(p.VolumeTitle).First()
	if heading.Length() == 0 {
		return ""
	}
	heading = heading.Clone()
	if len(p.VolumeTitleNoise) > 0 {
		heading.Find(strings.Join(p.VolumeTitleNoise, ", ")).Remove()
	}
	return cleanText(heading.Text())
}

// cleanText collapses runs of whitespace, including full-width spaces, to one space.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
