package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertRun stores a run and its topic outcomes in one transaction.
// Inserting a run whose ID already exists replaces it.
func (db *DB) InsertRun(run *Run) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM topic_results WHERE run_id = ?", run.ID); err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO runs
		(id, started_at, finished_at, output_dir, topic_count, succeeded, aborted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), formatTime(run.FinishedAt),
		run.OutputDir, run.TopicCount, run.Succeeded, run.Aborted,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for _, t := range run.Topics {
		cats, err := marshalList(t.Categories)
		if err != nil {
			return err
		}
		tags, err := marshalList(t.Tags)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT INTO topic_results
			(run_id, position, title, slug, state, failed_stage, error,
			 document_path, image_path, categories, tags, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, t.Position, t.Title, t.Slug, t.State, t.FailedStage, t.Error,
			t.DocumentPath, t.ImagePath, cats, tags, t.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting topic %d: %w", t.Position, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run with its topics, or nil if it does not exist.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, output_dir, topic_count, succeeded, aborted
		FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	run.Topics, err = db.GetTopicResults(id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRecentRuns returns up to limit runs, newest first, without topics.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, finished_at, output_dir, topic_count, succeeded, aborted
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetLatestRun returns the most recent run with its topics, or nil.
func (db *DB) GetLatestRun() (*Run, error) {
	runs, err := db.GetRecentRuns(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return db.GetRun(runs[0].ID)
}

// GetTopicResults returns the topic outcomes of a run in input order.
func (db *DB) GetTopicResults(runID string) ([]TopicRecord, error) {
	rows, err := db.conn.Query(
		`SELECT position, title, slug, state, failed_stage, error,
		document_path, image_path, categories, tags, duration_ms
		FROM topic_results WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []TopicRecord
	for rows.Next() {
		var t TopicRecord
		var cats, tags *string
		var durationMs int64
		if err := rows.Scan(&t.Position, &t.Title, &t.Slug, &t.State, &t.FailedStage, &t.Error,
			&t.DocumentPath, &t.ImagePath, &cats, &tags, &durationMs); err != nil {
			return nil, err
		}
		t.Categories = unmarshalList(cats)
		t.Tags = unmarshalList(tags)
		t.Duration = time.Duration(durationMs) * time.Millisecond
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetStats returns aggregate statistics over all runs.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM topic_results", &s.Topics},
		{"SELECT COUNT(*) FROM topic_results WHERE state = 'persisted'", &s.Succeeded},
		{"SELECT COUNT(*) FROM topic_results WHERE state = 'aborted'", &s.Aborted},
		{"SELECT COUNT(*) FROM topic_results WHERE state = 'persisted' AND (image_path IS NULL OR image_path = '')", &s.NoImage},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var started string
	var finished *string
	if err := s.Scan(&r.ID, &started, &finished, &r.OutputDir, &r.TopicCount, &r.Succeeded, &r.Aborted); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished != nil {
		r.FinishedAt, _ = time.Parse(timeLayout, *finished)
	}
	return &r, nil
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}

func marshalList(items []string) (*string, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func unmarshalList(s *string) []string {
	if s == nil {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(*s), &items); err != nil {
		return nil
	}
	return items
}
