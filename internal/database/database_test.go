package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func sampleRun(id string, started time.Time) *Run {
	return &Run{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		OutputDir:  "/tmp/out",
		TopicCount: 2,
		Succeeded:  1,
		Aborted:    1,
		Topics: []TopicRecord{
			{
				Position:     1,
				Title:        "Solar Panels",
				Slug:         "Solar-Panels",
				State:        "persisted",
				DocumentPath: ptr("/tmp/out/Solar-Panels.html"),
				Categories:   []string{"solar", "panel", "technology"},
				Tags:         []string{"panel", "technology"},
				Duration:     1500 * time.Millisecond,
			},
			{
				Position:    2,
				Title:       "AI Ethics",
				Slug:        "AI-Ethics",
				State:       "aborted",
				FailedStage: ptr("generate"),
				Error:       ptr("empty response from provider"),
			},
		},
	}
}

func TestInsertAndGetRun(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	if err := db.InsertRun(sampleRun("01JRUNA", started)); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	run, err := db.GetRun("01JRUNA")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run == nil {
		t.Fatal("expected run")
	}
	if !run.StartedAt.Equal(started) || run.Succeeded != 1 || run.Aborted != 1 {
		t.Errorf("unexpected run %+v", run)
	}
	if len(run.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(run.Topics))
	}
	first := run.Topics[0]
	if first.Title != "Solar Panels" || len(first.Categories) != 3 || first.Tags[1] != "technology" {
		t.Errorf("unexpected first topic %+v", first)
	}
	if first.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", first.Duration)
	}
	second := run.Topics[1]
	if second.FailedStage == nil || *second.FailedStage != "generate" || second.Categories != nil {
		t.Errorf("unexpected second topic %+v", second)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	run, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Error("expected nil for missing run")
	}
}

func TestInsertRunReplaces(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	run := sampleRun("01JRUNA", started)
	db.InsertRun(run)

	run.Topics = run.Topics[:1]
	run.TopicCount = 1
	if err := db.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	topics, _ := db.GetTopicResults("01JRUNA")
	if len(topics) != 1 {
		t.Errorf("expected topics to be replaced, got %d", len(topics))
	}
}

func TestGetRecentRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	db.InsertRun(sampleRun("01JRUNA", base))
	db.InsertRun(sampleRun("01JRUNB", base.Add(500*time.Millisecond)))
	db.InsertRun(sampleRun("01JRUNC", base.Add(time.Hour)))

	runs, err := db.GetRecentRuns(2)
	if err != nil {
		t.Fatalf("GetRecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "01JRUNC" || runs[1].ID != "01JRUNB" {
		t.Errorf("unexpected order: %+v", runs)
	}

	latest, err := db.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun: %v", err)
	}
	if latest.ID != "01JRUNC" || len(latest.Topics) != 2 {
		t.Errorf("unexpected latest run %+v", latest)
	}
}

func TestGetLatestRunEmpty(t *testing.T) {
	db := openTestDB(t)
	run, err := db.GetLatestRun()
	if err != nil || run != nil {
		t.Errorf("expected nil run, got %+v, %v", run, err)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Runs != 0 {
		t.Errorf("expected 0 runs, got %d", stats.Runs)
	}

	db.InsertRun(sampleRun("01JRUNA", time.Now()))

	stats, _ = db.GetStats()
	if stats.Runs != 1 || stats.Topics != 2 || stats.Succeeded != 1 || stats.Aborted != 1 || stats.NoImage != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
