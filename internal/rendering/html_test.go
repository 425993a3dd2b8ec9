package rendering

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/qidian-downloader/internal/types"
)

func testDocument() *types.Document {
	return &types.Document{
		Title:  "诡秘之主",
		Author: `爱潜水的"乌贼"`,
		Sections: []types.Section{
			{
				Title: "第一卷 小丑",
				Subsections: []types.Subsection{
					{Title: "第一章 绯红", ContentHTML: "<p>痛！</p>\n"},
					{Title: "第二章 <情况>", ContentHTML: "<p>好痛！</p>\n"},
				},
			},
			{
				Title: "第二卷 无面人",
				Subsections: []types.Subsection{
					{Title: "第三章", ContentHTML: "<p>&lt;钝器&gt;</p>\n"},
				},
			},
		},
	}
}

func TestRenderHTML_Structure(t *testing.T) {
	html, err := RenderHTML(testDocument(), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>\n"))
	assert.Contains(t, html, `<meta name="author" content="爱潜水的&#34;乌贼&#34;" />`)
	assert.Contains(t, html, "<title>诡秘之主</title>")
	assert.Contains(t, html, "<body>\n<h1>第一卷 小丑</h1>\n<h2>第一章 绯红</h2>\n<p>痛！</p>\n<h2>第二章 &lt;情况&gt;</h2>\n<p>好痛！</p>\n<h1>第二卷 无面人</h1>\n<h2>第三章</h2>\n<p>&lt;钝器&gt;</p>\n</body>")
	assert.True(t, strings.HasSuffix(html, "</html>\n"))
}

func TestRenderHTML_OneHeadingPerNode(t *testing.T) {
	html, err := RenderHTML(testDocument(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, "<h1>"))
	assert.Equal(t, 3, strings.Count(html, "<h2>"))
}

func TestRenderHTML_ContentIsNotEscaped(t *testing.T) {
	doc := testDocument()
	doc.Sections[0].Subsections[0].ContentHTML = "<p><em>raw</em></p>\n"

	html, err := RenderHTML(doc, "")
	require.NoError(t, err)
	assert.Contains(t, html, "<p><em>raw</em></p>")
}

func TestRenderHTML_NilDocument(t *testing.T) {
	_, err := RenderHTML(nil, "")
	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}

func TestRenderHTML_CustomTemplate(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "custom.html")
	content := `{{.Title}} by {{.Author}}:{{range .Sections}} [{{.Title}}{{range .Subsections}} {{.Title}}{{end}}]{{end}}`
	require.NoError(t, os.WriteFile(templatePath, []byte(content), 0644))

	html, err := RenderHTML(testDocument(), templatePath)
	require.NoError(t, err)
	assert.Equal(t, "诡秘之主 by 爱潜水的&#34;乌贼&#34;: [第一卷 小丑 第一章 绯红 第二章 &lt;情况&gt;] [第二卷 无面人 第三章]", html)
}

func TestParseTemplate_InvalidPath(t *testing.T) {
	_, err := parseTemplate("/nonexistent/template.html")
	assert.Error(t, err)
	var templateErr *TemplateError
	assert.ErrorAs(t, err, &templateErr)
	assert.Contains(t, err.Error(), "template file not found")
}

func TestParseTemplate_InvalidTemplate(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "invalid.html")
	require.NoError(t, os.WriteFile(templatePath, []byte(`<p>{{.InvalidSyntax{{}}</p>`), 0644))

	_, err := parseTemplate(templatePath)
	assert.Error(t, err)
	var templateErr *TemplateError
	assert.ErrorAs(t, err, &templateErr)
}

func TestRenderHTML_ExecuteError(t *testing.T) {
	templatePath := filepath.Join(t.TempDir(), "bad.html")
	require.NoError(t, os.WriteFile(templatePath, []byte(`{{.Missing}}`), 0644))

	_, err := RenderHTML(testDocument(), templatePath)
	var templateErr *TemplateError
	require.ErrorAs(t, err, &templateErr)
	assert.Contains(t, err.Error(), "failed to execute template")
}

func TestWriteHTML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	doc := testDocument()
	doc.Title = "诡秘/之主"

	path, err := WriteHTML(doc, dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "诡秘_之主.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>诡秘/之主</title>")
}
