package rendering

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/qidian-downloader/internal/types"
)

//go:embed book.html.tmpl
var defaultTemplate string

// TemplateData represents the data structure passed to the HTML template
type TemplateData struct {
	Title    string
	Author   string
	Sections []SectionData
}

// SectionData is one volume with its chapters
type SectionData struct {
	Title       string
	Subsections []SubsectionData
}

// SubsectionData is one chapter. Content is trusted markup produced by the extractor.
type SubsectionData struct {
	Title   string
	Content template.HTML
}

// RenderHTML renders doc with the built-in template, or with the template at
// templatePath when it is non-empty.
func RenderHTML(doc *types.Document, templatePath string) (string, error) {
	if doc == nil {
		return "", &RenderError{Message: "no document to render"}
	}

	tmpl, err := parseTemplate(templatePath)
	if err != nil {
		return "", err
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, buildTemplateData(doc)); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	return result.String(), nil
}

// WriteHTML renders doc and writes it to dir as "<title>.html". It returns the written path.
func WriteHTML(doc *types.Document, dir, templatePath string) (string, error) {
	html, err := RenderHTML(doc, templatePath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &RenderError{Message: fmt.Sprintf("failed to create output directory %s", dir), Cause: err}
	}
	path := filepath.Join(dir, SanitizeFilename(doc.Title)+".html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", &RenderError{Message: fmt.Sprintf("failed to write %s", path), Cause: err}
	}
	return path, nil
}

// parseTemplate reads and parses an HTML template; an empty path selects the built-in one
func parseTemplate(templatePath string) (*template.Template, error) {
	content := defaultTemplate
	name := "book"
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{
					Message: fmt.Sprintf("template file not found: %s", templatePath),
					Cause:   err,
				}
			}
			return nil, &TemplateError{
				Message: fmt.Sprintf("failed to read template file: %s", templatePath),
				Cause:   err,
			}
		}
		content = string(data)
		name = filepath.Base(templatePath)
	}

	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	return tmpl, nil
}

func buildTemplateData(doc *types.Document) *TemplateData {
	data := &TemplateData{
		Title:    doc.Title,
		Author:   doc.Author,
		Sections: make([]SectionData, 0, len(doc.Sections)),
	}
	for _, section := range doc.Sections {
		s := SectionData{
			Title:       section.Title,
			Subsections: make([]SubsectionData, 0, len(section.Subsections)),
		}
		for _, sub := range section.Subsections {
			s.Subsections = append(s.Subsections, SubsectionData{
				Title:   sub.Title,
				Content: template.HTML(sub.ContentHTML),
			})
		}
		data.Sections = append(data.Sections, s)
	}
	return data
}
