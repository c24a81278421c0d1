package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/artikle/internal/article"
)

func TestIndexInitAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIndexFile)
	if err := InitIndex(path); err != nil {
		t.Fatalf("InitIndex: %v", err)
	}

	row := IndexRow{
		Title:         "Solar Panels",
		Content:       "<html>\n<p>a, \"quoted\" body</p>\n</html>",
		Categories:    []string{"solar", "panel", "technology"},
		Tags:          []string{"panel", "technology"},
		Image:         "images/Solar-Panels.png",
		FeaturedImage: "images/Solar-Panels.png",
		Excerpt:       "<html>",
	}
	if err := AppendIndex(path, row); err != nil {
		t.Fatalf("AppendIndex: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading index: %v", err)
	}
	if !strings.HasPrefix(string(data), "Article Title,Content (HTML),Categories,Tags,Image,Featured Image,Excerpt\n") {
		t.Errorf("unexpected header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}
	if !strings.Contains(string(data), `"solar, panel, technology"`) {
		t.Error("expected categories joined with comma-space")
	}

	rows, err := ReadIndex(path)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Content != row.Content || rows[0].Image != rows[0].FeaturedImage {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

func TestInitIndexTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultIndexFile)
	InitIndex(path)
	AppendIndex(path, IndexRow{Title: "A"})
	AppendIndex(path, IndexRow{Title: "B"})

	if err := InitIndex(path); err != nil {
		t.Fatalf("InitIndex: %v", err)
	}
	rows, err := ReadIndex(path)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty index after re-init, got %d rows", len(rows))
	}
}

func TestAppendWithoutInitFails(t *testing.T) {
	if err := AppendIndex(filepath.Join(t.TempDir(), "missing.csv"), IndexRow{}); err == nil {
		t.Error("expected error appending to a missing index")
	}
}

func TestFileSinkWriteDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sink := NewFileSink(dir, "", true)

	doc := article.Assemble("<h1>Solar</h1><p>Panels</p>", "Solar Panels", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	rendered, _ := doc.Render()
	path, err := sink.WriteDocument(doc, rendered)
	if err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if path != filepath.Join(dir, "Solar-Panels.html") {
		t.Errorf("unexpected path %q", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != rendered {
		t.Error("expected rendered document on disk")
	}

	md, err := os.ReadFile(filepath.Join(dir, "Solar-Panels.md"))
	if err != nil {
		t.Fatalf("expected markdown export: %v", err)
	}
	if !strings.Contains(string(md), "# Solar") || !strings.Contains(string(md), "publishedAt: 2026-05-01") {
		t.Errorf("unexpected markdown export:\n%s", md)
	}
}

func TestFileSinkWriteDocumentFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	os.WriteFile(blocker, []byte("x"), 0o644)

	sink := NewFileSink(filepath.Join(blocker, "out"), "", false)
	doc := article.Assemble("<p>x</p>", "X", time.Now())
	if _, err := sink.WriteDocument(doc, "x"); err == nil {
		t.Error("expected error when output dir cannot be created")
	}
}

func TestWriteReport(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &Report{
		RunID:      "01JTESTRUN",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Entries: []ReportEntry{
			{Title: "Solar Panels", State: "persisted", Document: "Solar-Panels.html", Image: "images/Solar-Panels.png"},
			{Title: "AI Ethics", State: "aborted", FailedStage: "generate", Error: "empty response from provider"},
		},
		Succeeded: 1,
		Aborted:   1,
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, r); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"# Run Report", "01JTESTRUN", "Solar Panels", "## Failures", "AI Ethics (generate): empty response from provider", "mermaid"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
