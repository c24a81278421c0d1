package database

import "time"

// Run is one pipeline invocation.
type Run struct {
	ID         string // ULID
	StartedAt  time.Time
	FinishedAt time.Time
	OutputDir  string
	TopicCount int
	Succeeded  int
	Aborted    int
	Topics     []TopicRecord
}

// TopicRecord is the stored outcome of a single topic.
type TopicRecord struct {
	Position     int
	Title        string
	Slug         string
	State        string
	FailedStage  *string
	Error        *string
	DocumentPath *string
	ImagePath    *string
	Categories   []string
	Tags         []string
	Duration     time.Duration
}

// Stats holds aggregate run statistics.
type Stats struct {
	Runs      int
	Topics    int
	Succeeded int
	Aborted   int
	NoImage   int
}
