// Package article turns a generated body into a publishable HTML document.
package article

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

// DateLayout is the format of the publishedAt meta tag.
const DateLayout = "2006-01-02"

//go:embed templates/document.html
var templateFS embed.FS

var documentTmpl = template.Must(template.ParseFS(templateFS, "templates/document.html"))

// Document is a fully assembled article ready to be written.
type Document struct {
	Title       string
	Slug        string
	Body        string
	PublishedAt time.Time
}

// Assemble builds the document for a topic. It performs no I/O; the
// publication date comes from the caller.
func Assemble(body, title string, date time.Time) Document {
	return Document{
		Title:       title,
		Slug:        Slugify(title),
		Body:        body,
		PublishedAt: date,
	}
}

// Filename is the document's file name inside the output directory.
func (d Document) Filename() string {
	return d.Slug + ".html"
}

// Render produces the full HTML page. The title is escaped; the body is
// inserted verbatim.
func (d Document) Render() (string, error) {
	var buf bytes.Buffer
	err := documentTmpl.Execute(&buf, struct {
		Title string
		Date  string
		Body  template.HTML
	}{
		Title: d.Title,
		Date:  d.PublishedAt.Format(DateLayout),
		Body:  template.HTML(d.Body),
	})
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", d.Slug, err)
	}
	return buf.String(), nil
}
