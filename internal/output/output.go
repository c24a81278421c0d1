// Package output persists generated documents and the run index.
package output

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/artikle/internal/article"
)

// Sink persists the artifacts of one topic and the run index.
type Sink interface {
	// InitIndex truncates the index and writes its header.
	InitIndex() error
	WriteDocument(doc article.Document, rendered string) (string, error)
	AppendIndex(row IndexRow) error
}

// FileSink writes everything below a single output directory.
type FileSink struct {
	Dir            string
	IndexFile      string
	ExportMarkdown bool
}

// NewFileSink creates a sink rooted at dir.
func NewFileSink(dir, indexFile string, exportMarkdown bool) *FileSink {
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}
	return &FileSink{Dir: dir, IndexFile: indexFile, ExportMarkdown: exportMarkdown}
}

// IndexPath returns the path of the CSV index.
func (s *FileSink) IndexPath() string {
	return filepath.Join(s.Dir, s.IndexFile)
}

// InitIndex implements Sink.
func (s *FileSink) InitIndex() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	return InitIndex(s.IndexPath())
}

// AppendIndex implements Sink.
func (s *FileSink) AppendIndex(row IndexRow) error {
	return AppendIndex(s.IndexPath(), row)
}

// WriteDocument writes <dir>/<slug>.html and returns its path. With markdown
// export enabled a <slug>.md copy is written next to it; failing that only logs.
func (s *FileSink) WriteDocument(doc article.Document, rendered string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(s.Dir, doc.Filename())
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	if s.ExportMarkdown {
		if err := s.writeMarkdown(doc); err != nil {
			log.Printf("Markdown export failed for %s: %v", doc.Slug, err)
		}
	}
	return path, nil
}

func (s *FileSink) writeMarkdown(doc article.Document) error {
	body, err := article.ToMarkdown(doc.Body)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("---\ntitle: %q\npublishedAt: %s\n---\n\n%s\n",
		doc.Title, doc.PublishedAt.Format(article.DateLayout), body)
	return os.WriteFile(filepath.Join(s.Dir, doc.Slug+".md"), []byte(content), 0o644)
}
