package pipeline

import (
	"time"

	"github.com/TobiSchelling/artikle/internal/database"
	"github.com/TobiSchelling/artikle/internal/keywords"
	"github.com/TobiSchelling/artikle/internal/output"
	"github.com/TobiSchelling/artikle/internal/topics"
)

// State is the progress of a single topic.
type State string

const (
	StateStart      State = "start"
	StateGenerated  State = "generated"
	StateSummarized State = "summarized"
	StateExtracted  State = "extracted"
	StateImaged     State = "imaged"
	StateAssembled  State = "assembled"
	StatePersisted  State = "persisted"
	StateAborted    State = "aborted"
)

// Stage names the step a topic failed in.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageSummarize Stage = "summarize"
	StageExtract   Stage = "extract"
	StageImage     Stage = "image"
	StageAssemble  Stage = "assemble"
	StageWrite     Stage = "write"
	StageIndex     Stage = "index"
)

// TopicResult is the outcome of one topic.
type TopicResult struct {
	Position     int
	Topic        topics.Topic
	Slug         string
	State        State
	FailedStage  Stage
	Err          error
	DocumentPath string
	ImagePath    string
	Keywords     keywords.Set
	Duration     time.Duration
}

func (tr *TopicResult) abort(s Stage, err error) {
	tr.State = StateAborted
	tr.FailedStage = s
	tr.Err = err
}

// Succeeded reports whether the topic reached the index.
func (tr TopicResult) Succeeded() bool {
	return tr.State == StatePersisted
}

// Result summarizes a run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Topics     []TopicResult

	Processed    int
	Aborted      int
	WithoutImage int

	Cancelled  bool
	DryRun     bool
	ReportPath string
	// Err is set when the run could not start at all.
	Err error
}

func (r *Result) add(tr TopicResult) {
	r.Topics = append(r.Topics, tr)
	switch {
	case tr.Succeeded():
		r.Processed++
		if tr.ImagePath == "" {
			r.WithoutImage++
		}
	case tr.State == StateAborted:
		r.Aborted++
	}
}

// Report converts the result into the markdown report model.
func (r *Result) Report() *output.Report {
	rep := &output.Report{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Succeeded:  r.Processed,
		Aborted:    r.Aborted,
		NoImage:    r.WithoutImage,
	}
	for _, tr := range r.Topics {
		e := output.ReportEntry{
			Title:       tr.Topic.Title,
			State:       string(tr.State),
			FailedStage: string(tr.FailedStage),
			Document:    tr.DocumentPath,
			Image:       tr.ImagePath,
			Duration:    tr.Duration,
		}
		if tr.Err != nil {
			e.Error = tr.Err.Error()
		}
		rep.Entries = append(rep.Entries, e)
	}
	return rep
}

// Run converts the result into its stored form.
func (r *Result) Run(outputDir string) *database.Run {
	run := &database.Run{
		ID:         r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		OutputDir:  outputDir,
		TopicCount: len(r.Topics),
		Succeeded:  r.Processed,
		Aborted:    r.Aborted,
	}
	for _, tr := range r.Topics {
		rec := database.TopicRecord{
			Position:     tr.Position,
			Title:        tr.Topic.Title,
			Slug:         tr.Slug,
			State:        string(tr.State),
			DocumentPath: optional(tr.DocumentPath),
			ImagePath:    optional(tr.ImagePath),
			Categories:   tr.Keywords.Categories,
			Tags:         tr.Keywords.Tags,
			Duration:     tr.Duration,
		}
		if tr.FailedStage != "" {
			rec.FailedStage = optional(string(tr.FailedStage))
		}
		if tr.Err != nil {
			rec.Error = optional(tr.Err.Error())
		}
		run.Topics = append(run.Topics, rec)
	}
	return run
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
