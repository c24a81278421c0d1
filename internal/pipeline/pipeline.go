package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/TobiSchelling/artikle/internal/article"
	"github.com/TobiSchelling/artikle/internal/database"
	"github.com/TobiSchelling/artikle/internal/generate"
	"github.com/TobiSchelling/artikle/internal/imagegen"
	"github.com/TobiSchelling/artikle/internal/keywords"
	"github.com/TobiSchelling/artikle/internal/output"
	"github.com/TobiSchelling/artikle/internal/topics"
)

// DefaultExcerptLength is used when Deps.ExcerptLength is zero.
const DefaultExcerptLength = 300

// ImageGenerator renders the illustration for a topic. A nil artifact means
// no image is available.
type ImageGenerator interface {
	Generate(ctx context.Context, summary, key string) *imagegen.Artifact
}

// KeywordExtractor derives categories and tags from a summary.
type KeywordExtractor interface {
	Extract(text string) keywords.Set
}

// Recorder stores finished runs.
type Recorder interface {
	InsertRun(run *database.Run) error
}

// Deps are the collaborators of a pipeline.
type Deps struct {
	Generator generate.ContentGenerator
	Images    ImageGenerator // nil disables image generation
	Extractor KeywordExtractor
	Sink      output.Sink
	Recorder  Recorder // optional
	Clock     func() time.Time

	// OutputDir and ReportFile locate the markdown run report. An empty
	// ReportFile disables it.
	OutputDir     string
	ReportFile    string
	ExcerptLength int
	// ImagesDir is the image directory relative to OutputDir, used by
	// DryRun. Defaults to "images".
	ImagesDir string
}

// Pipeline processes topics one at a time, isolating failures per topic.
type Pipeline struct {
	deps Deps

	mu      sync.Mutex
	entropy io.Reader
}

// New creates a pipeline. Missing optional collaborators get defaults.
func New(deps Deps) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Extractor == nil {
		deps.Extractor = keywords.Default()
	}
	if deps.ExcerptLength == 0 {
		deps.ExcerptLength = DefaultExcerptLength
	}
	if deps.ImagesDir == "" {
		deps.ImagesDir = "images"
	}
	return &Pipeline{
		deps:    deps,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (p *Pipeline) newRunID(t time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// Run processes topics sequentially in input order. The index is reset
// before the first topic. Cancelling ctx stops the run between topics.
func (p *Pipeline) Run(ctx context.Context, items []topics.Topic) *Result {
	started := p.deps.Clock()
	r := &Result{RunID: p.newRunID(started), StartedAt: started}

	if err := p.deps.Sink.InitIndex(); err != nil {
		r.Err = fmt.Errorf("initializing index: %w", err)
		r.FinishedAt = p.deps.Clock()
		return r
	}

	for i, topic := range items {
		if err := ctx.Err(); err != nil {
			log.Printf("Run cancelled, %d of %d topics not processed", len(items)-i, len(items))
			r.Cancelled = true
			break
		}

		log.Printf("Topic %d/%d: %s", i+1, len(items), topic.Title)
		tr := p.processTopic(ctx, i+1, topic)
		if tr.State == StateAborted {
			log.Printf("Topic %q aborted at %s: %v", topic.Title, tr.FailedStage, tr.Err)
		}
		r.add(tr)
	}

	r.FinishedAt = p.deps.Clock()
	log.Printf("Run %s complete: %d processed, %d aborted, %d without image",
		r.RunID, r.Processed, r.Aborted, r.WithoutImage)

	p.writeReport(r)
	p.record(r)
	return r
}

// DryRun reports what Run would produce without calling any backend or
// touching the filesystem.
func (p *Pipeline) DryRun(items []topics.Topic) *Result {
	now := p.deps.Clock()
	r := &Result{RunID: p.newRunID(now), StartedAt: now, FinishedAt: now, DryRun: true}
	for i, topic := range items {
		slug := article.Slugify(topic.Title)
		tr := TopicResult{
			Position:     i + 1,
			Topic:        topic,
			Slug:         slug,
			State:        StateStart,
			DocumentPath: filepath.Join(p.deps.OutputDir, slug+".html"),
		}
		if p.deps.Images != nil {
			tr.ImagePath = path.Join(filepath.ToSlash(p.deps.ImagesDir), slug+".png")
		}
		r.Topics = append(r.Topics, tr)
	}
	return r
}

func (p *Pipeline) processTopic(ctx context.Context, pos int, topic topics.Topic) (tr TopicResult) {
	start := time.Now()
	tr = TopicResult{Position: pos, Topic: topic, Slug: article.Slugify(topic.Title), State: StateStart}
	defer func() { tr.Duration = time.Since(start) }()

	var body string
	if !p.stage(&tr, StageGenerate, func() (err error) {
		body, err = p.deps.Generator.GenerateArticle(ctx, topic)
		if err != nil {
			return err
		}
		body, err = article.Normalize(body)
		if err == nil && body == "" {
			err = &generate.BackendError{Op: "article", Err: fmt.Errorf("empty body after normalization")}
		}
		return err
	}) {
		return tr
	}
	tr.State = StateGenerated

	var summary string
	if !p.stage(&tr, StageSummarize, func() (err error) {
		summary, err = p.deps.Generator.Summarize(ctx, body)
		return err
	}) {
		return tr
	}
	tr.State = StateSummarized

	if !p.stage(&tr, StageExtract, func() error {
		tr.Keywords = p.deps.Extractor.Extract(summary)
		return nil
	}) {
		return tr
	}
	tr.State = StateExtracted

	if p.deps.Images != nil {
		if img := p.image(ctx, summary, tr.Slug); img != nil {
			tr.ImagePath = img.Path
		}
	}
	tr.State = StateImaged

	var doc article.Document
	var rendered string
	if !p.stage(&tr, StageAssemble, func() (err error) {
		doc = article.Assemble(body, topic.Title, p.deps.Clock())
		rendered, err = doc.Render()
		return err
	}) {
		return tr
	}
	tr.State = StateAssembled

	if !p.stage(&tr, StageWrite, func() (err error) {
		tr.DocumentPath, err = p.deps.Sink.WriteDocument(doc, rendered)
		return err
	}) {
		return tr
	}

	row := output.IndexRow{
		Title:         topic.Title,
		Content:       rendered,
		Categories:    tr.Keywords.Categories,
		Tags:          tr.Keywords.Tags,
		Image:         tr.ImagePath,
		FeaturedImage: tr.ImagePath,
		Excerpt:       article.Excerpt(body, p.deps.ExcerptLength),
	}
	if !p.stage(&tr, StageIndex, func() error {
		return p.deps.Sink.AppendIndex(row)
	}) {
		return tr
	}
	tr.State = StatePersisted
	return tr
}

// image never aborts a topic: a panicking generator counts as no image.
func (p *Pipeline) image(ctx context.Context, summary, key string) (img *imagegen.Artifact) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in %s stage for %s: %v", StageImage, key, rec)
			img = nil
		}
	}()
	return p.deps.Images.Generate(ctx, summary, key)
}

// stage runs fn, converting an error or panic into an aborted topic.
func (p *Pipeline) stage(tr *TopicResult, s Stage, fn func() error) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in %s stage for %q: %v", s, tr.Topic.Title, rec)
			tr.abort(s, fmt.Errorf("panic: %v", rec))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		tr.abort(s, err)
		return false
	}
	return true
}

func (p *Pipeline) writeReport(r *Result) {
	if p.deps.ReportFile == "" {
		return
	}
	path := filepath.Join(p.deps.OutputDir, p.deps.ReportFile)
	if err := output.WriteReportFile(path, r.Report()); err != nil {
		log.Printf("Writing run report: %v", err)
		return
	}
	r.ReportPath = path
}

func (p *Pipeline) record(r *Result) {
	if p.deps.Recorder == nil {
		return
	}
	if err := p.deps.Recorder.InsertRun(r.Run(p.deps.OutputDir)); err != nil {
		log.Printf("Recording run %s: %v", r.RunID, err)
	}
}
