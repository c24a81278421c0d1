package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TobiSchelling/artikle/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func newTestServer(t *testing.T, db *database.DB) (*Server, string) {
	t.Helper()
	out := t.TempDir()
	srv, err := New(db, Options{OutputDir: out, ReportFile: "run-report.md"})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, out
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func insertRun(t *testing.T, db *database.DB) {
	t.Helper()
	err := db.InsertRun(&database.Run{
		ID:         "01JSERVERRUN",
		StartedAt:  time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		TopicCount: 2,
		Succeeded:  1,
		Aborted:    1,
		Topics: []database.TopicRecord{
			{Position: 1, Title: "Solar Panels", Slug: "Solar-Panels", State: "persisted",
				ImagePath: ptr("images/Solar-Panels.png"), Categories: []string{"solar", "panel"}},
			{Position: 2, Title: "AI Ethics", Slug: "AI-Ethics", State: "aborted",
				FailedStage: ptr("generate"), Error: ptr("empty response from provider")},
		},
	})
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	srv, _ := newTestServer(t, db)

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No runs yet") {
		t.Error("expected empty state in response body")
	}

	insertRun(t, db)
	rec = get(t, srv, "/")
	if !strings.Contains(rec.Body.String(), "/runs/01JSERVERRUN") {
		t.Error("expected link to run")
	}
}

func TestRunRoute(t *testing.T) {
	db := openTestDB(t)
	insertRun(t, db)
	srv, _ := newTestServer(t, db)

	rec := get(t, srv, "/runs/01JSERVERRUN")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`href="/articles/Solar-Panels.html"`,
		`src="/images/Solar-Panels.png"`,
		"solar, panel",
		"aborted (generate)",
		"empty response from provider",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestRunRouteMissing(t *testing.T) {
	srv, _ := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/runs/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestArticleAndImageRoutes(t *testing.T) {
	srv, out := newTestServer(t, openTestDB(t))
	os.WriteFile(filepath.Join(out, "Solar-Panels.html"), []byte("<p>solar</p>"), 0o644)
	os.WriteFile(filepath.Join(out, "articles_summary.csv"), []byte("secret"), 0o644)
	os.MkdirAll(filepath.Join(out, "images"), 0o755)
	os.WriteFile(filepath.Join(out, "images", "Solar-Panels.png"), []byte("\x89PNG"), 0o644)

	if rec := get(t, srv, "/articles/Solar-Panels.html"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "solar") {
		t.Errorf("expected article, got %d", rec.Code)
	}
	if rec := get(t, srv, "/articles/articles_summary.csv"); rec.Code != http.StatusNotFound {
		t.Errorf("expected csv to be hidden, got %d", rec.Code)
	}
	if rec := get(t, srv, "/images/Solar-Panels.png"); rec.Code != http.StatusOK {
		t.Errorf("expected image, got %d", rec.Code)
	}
}

func TestReportRoute(t *testing.T) {
	srv, out := newTestServer(t, openTestDB(t))

	if rec := get(t, srv, "/report"); !strings.Contains(rec.Body.String(), "No run report") {
		t.Error("expected empty report state")
	}

	os.WriteFile(filepath.Join(out, "run-report.md"), []byte("# Run Report\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"), 0o644)
	body := get(t, srv, "/report").Body.String()
	if !strings.Contains(body, "<h1>Run Report</h1>") || !strings.Contains(body, "<table>") {
		t.Errorf("expected rendered markdown report, got %s", body)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t, openTestDB(t))
	if rec := get(t, srv, "/static/style.css"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRunRouteCustomImagesDir(t *testing.T) {
	db := openTestDB(t)
	out := t.TempDir()
	srv, err := New(db, Options{OutputDir: out, ImagesDir: "art"})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	err = db.InsertRun(&database.Run{
		ID:         "01JCUSTOMDIR",
		StartedAt:  time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		TopicCount: 1,
		Succeeded:  1,
		Topics: []database.TopicRecord{
			{Position: 1, Title: "Solar Panels", Slug: "Solar-Panels", State: "persisted",
				ImagePath: ptr("art/Solar-Panels.png")},
		},
	})
	if err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	os.MkdirAll(filepath.Join(out, "art"), 0o755)
	os.WriteFile(filepath.Join(out, "art", "Solar-Panels.png"), []byte("\x89PNG"), 0o644)

	body := get(t, srv, "/runs/01JCUSTOMDIR").Body.String()
	if !strings.Contains(body, `src="/images/Solar-Panels.png"`) {
		t.Errorf("expected thumbnail on the images route, got %s", body)
	}
	if rec := get(t, srv, "/images/Solar-Panels.png"); rec.Code != http.StatusOK {
		t.Errorf("expected image to be served, got %d", rec.Code)
	}
}
