package extract

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/qidian-downloader/internal/site"
	"github.com/jonathan/qidian-downloader/internal/types"
)

// chromeSelectors are removed from every content region before paragraphs are collected.
const chromeSelectors = "nav, footer, header, script, style, noscript, iframe, form, button, " +
	".ad, .ads, .advertisement, .sidebar, .cookie-banner, .popup"

// Parse extracts the fragment for entry from a rendered chapter page.
func Parse(page string, entry types.CatalogEntry, p *site.Profile) (types.ContentFragment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: "failed to parse chapter page", Cause: err}
	}

	for _, sel := range p.SessionExpired {
		if doc.Find(sel).Length() > 0 {
			return types.ContentFragment{}, &Error{Kind: KindSessionExpired, Entry: entry, Message: fmt.Sprintf("page requires login (%s)", sel)}
		}
	}
	for _, sel := range p.ChapterLocked {
		if doc.Find(sel).Length() > 0 {
			return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: fmt.Sprintf("chapter is locked (%s)", sel)}
		}
	}

	region := firstMatch(doc, p.ChapterContent)
	if region == nil {
		return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: "content region not found", Cause: errNotRendered}
	}

	region = region.Clone()
	region.Find(chromeSelectors).Remove()
	if len(p.ChapterNoise) > 0 {
		region.Find(strings.Join(p.ChapterNoise, ", ")).Remove()
	}

	paragraphs := collectParagraphs(region)
	if len(paragraphs) == 0 {
		return types.ContentFragment{}, &Error{Kind: KindContentMissing, Entry: entry, Message: "content region is empty", Cause: errNotRendered}
	}

	title := entry.Title
	if sel := firstMatch(doc, p.ChapterTitle); sel != nil {
		if t := cleanText(sel.Text()); t != "" {
			title = t
		}
	}

	return types.ContentFragment{
		Title:       title,
		ContentHTML: renderParagraphs(paragraphs),
	}, nil
}

// firstMatch returns the first element matched by the first selector that matches anything.
func firstMatch(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			return selection.First()
		}
	}
	return nil
}

// collectParagraphs returns the non-empty paragraphs of region. Regions
// without <p> elements are split on <br> and line breaks.
func collectParagraphs(region *goquery.Selection) []string {
	var paragraphs []string

	if ps := region.Find("p"); ps.Length() > 0 {
		ps.Each(func(_ int, p *goquery.Selection) {
			if p.Find("p").Length() > 0 {
				return
			}
			if text := cleanText(p.Text()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		})
		return paragraphs
	}

	region.Find("br").ReplaceWithHtml("\n")
	for _, line := range strings.Split(region.Text(), "\n") {
		if text := cleanText(line); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

func renderParagraphs(paragraphs []string) string {
	var sb strings.Builder
	for _, p := range paragraphs {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(p))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// cleanText trims indentation, including full-width spaces, and collapses inner whitespace.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
