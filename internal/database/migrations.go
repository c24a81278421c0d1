package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "runs and topic results",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    topic_count INTEGER DEFAULT 0,
    succeeded INTEGER DEFAULT 0,
    aborted INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS topic_results (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    state TEXT NOT NULL,
    failed_stage TEXT,
    error TEXT,
    document_path TEXT,
    image_path TEXT,
    categories TEXT,
    tags TEXT,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "topic durations and run output dir",
		Up: func(tx *sql.Tx) error {
			for _, stmt := range []string{
				"ALTER TABLE topic_results ADD COLUMN duration_ms INTEGER DEFAULT 0",
				"ALTER TABLE runs ADD COLUMN output_dir TEXT DEFAULT ''",
			} {
				if _, err := tx.Exec(stmt); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
