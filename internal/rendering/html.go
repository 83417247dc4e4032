package rendering

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/jonathan/wikibot/internal/markup"
)

// markdown is stateless and safe for concurrent use. Raw HTML in the input is
// not passed through since page content comes from a public wiki.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// MarkdownToHTML renders chat Markdown as an HTML fragment.
func MarkdownToHTML(md []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page is the data passed to the preview template.
type Page struct {
	Title    string
	URL      string
	Summary  template.HTML
	Sections []PageSection
}

// PageSection is one rendered section of a page.
type PageSection struct {
	Title string
	Body  template.HTML
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
<h1>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</h1>
{{.Summary}}
{{- range .Sections}}
<section>
<h2>{{.Title}}</h2>
{{.Body}}
</section>
{{- end}}
</article>
</body>
</html>
`

var pageTmpl = template.Must(template.New("page").Parse(pageTemplate))

// RenderPage renders converted sections as a complete HTML document. The
// first section supplies the page title and summary. Failures are returned as
// *PreviewError naming the page and, where known, the section.
func RenderPage(url string, sections []markup.Section) (string, error) {
	if len(sections) == 0 {
		return "", &PreviewError{Page: url, Err: ErrNoSections}
	}

	title := sections[0].Title
	summary, err := MarkdownToHTML([]byte(sections[0].Body))
	if err != nil {
		return "", &PreviewError{Page: title, Section: title, Err: err}
	}

	page := Page{
		Title:   title,
		URL:     url,
		Summary: template.HTML(summary),
	}
	for _, s := range sections[1:] {
		body, err := MarkdownToHTML([]byte(s.Body))
		if err != nil {
			return "", &PreviewError{Page: title, Section: s.Title, Err: err}
		}
		page.Sections = append(page.Sections, PageSection{Title: s.Title, Body: template.HTML(body)})
	}

	var sb strings.Builder
	if err := pageTmpl.Execute(&sb, page); err != nil {
		return "", &PreviewError{Page: title, Err: fmt.Errorf("execute template: %w", err)}
	}
	return sb.String(), nil
}
