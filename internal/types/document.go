package types

// BookInfo identifies a book and carries the metadata shown on its catalog page.
type BookInfo struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// CatalogEntry identifies one chapter before its content is fetched.
type CatalogEntry struct {
	SectionIndex    int    `json:"section_index"`
	SubsectionIndex int    `json:"subsection_index"`
	SectionTitle    string `json:"section_title"`
	Title           string `json:"title"`
	// SourceLocator is the absolute URL of the chapter page. Only the
	// extractor interprets it.
	SourceLocator string `json:"source_locator"`
}

// Catalog is the table of contents of a book in page order.
type Catalog struct {
	Book    BookInfo       `json:"book"`
	Entries []CatalogEntry `json:"entries"`
}

// SectionCount returns the number of distinct sections referenced by the entries.
func (c *Catalog) SectionCount() int {
	if c == nil || len(c.Entries) == 0 {
		return 0
	}
	return c.Entries[len(c.Entries)-1].SectionIndex + 1
}

// ContentFragment is the extracted, normalized content of one CatalogEntry.
type ContentFragment struct {
	Title       string `json:"title"`
	ContentHTML string `json:"content_html"`
}

// Document is a fully acquired book.
type Document struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Sections []Section `json:"sections"`
}

// Section is a volume of the book.
type Section struct {
	Title       string       `json:"title"`
	Subsections []Subsection `json:"subsections"`
}

// Subsection is a chapter with its rendered content markup.
type Subsection struct {
	Title       string `json:"title"`
	ContentHTML string `json:"content_html"`
}

// SubsectionCount returns the total number of chapters across all sections.
func (d *Document) SubsectionCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Sections {
		n += len(s.Subsections)
	}
	return n
}
