package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/artikle/internal/llm"
	"github.com/TobiSchelling/artikle/internal/topics"
)

const articleSystemPrompt = "You are an expert writer. Use an informative voice writing style. Only output HTML. NEVER add any text before or after the article."

const articlePrompt = "Write a detailed article about %s. Output should be HTML. " +
	"Do not end headings with 'in the Australian context', avoid concluding the article with the word 'Conclusion', " +
	"avoid including 'Australia' in the heading, and avoid including 'Australian' in the heading. " +
	"Include references to Australian legislation, best practices, and any other relevant local context."

const referencePrompt = `

Use the following reference material as background. Do not copy it verbatim:
'''%s'''`

const summaryPrompt = "Provide a maximum three-word summary of this article, focusing on the main technical topic or theme. \n\n'''%s'''"

// ContentGenerator produces the text artifacts for a topic.
type ContentGenerator interface {
	GenerateArticle(ctx context.Context, topic topics.Topic) (string, error)
	Summarize(ctx context.Context, article string) (string, error)
}

// ReferenceSource returns background text for a reference URL.
type ReferenceSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Settings are the per-request model parameters.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// BackendError reports a failed or empty generation request.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Writer generates articles and summaries with an LLM provider.
type Writer struct {
	provider   llm.Provider
	article    Settings
	summary    Settings
	references ReferenceSource
}

// NewWriter creates a writer. Zero temperatures fall back to 0.5 for
// articles and 0.7 for summaries.
func NewWriter(provider llm.Provider, article, summary Settings) *Writer {
	if article.Temperature == 0 {
		article.Temperature = 0.5
	}
	if summary.Temperature == 0 {
		summary.Temperature = 0.7
	}
	return &Writer{provider: provider, article: article, summary: summary}
}

// WithReferences enables background material for topics with a reference URL.
func (w *Writer) WithReferences(src ReferenceSource) *Writer {
	w.references = src
	return w
}

// GenerateArticle asks the backend for an HTML article on the topic.
func (w *Writer) GenerateArticle(ctx context.Context, topic topics.Topic) (string, error) {
	prompt := fmt.Sprintf(articlePrompt, topic.Title)
	if ref := w.referenceText(ctx, topic); ref != "" {
		prompt += fmt.Sprintf(referencePrompt, ref)
	}

	return w.generate(ctx, "article", llm.Request{
		System:      articleSystemPrompt,
		Prompt:      prompt,
		Model:       w.article.Model,
		MaxTokens:   w.article.MaxTokens,
		Temperature: w.article.Temperature,
	})
}

// Summarize asks the backend for a short phrase naming the article's theme.
func (w *Writer) Summarize(ctx context.Context, article string) (string, error) {
	return w.generate(ctx, "summary", llm.Request{
		Prompt:      fmt.Sprintf(summaryPrompt, article),
		Model:       w.summary.Model,
		MaxTokens:   w.summary.MaxTokens,
		Temperature: w.summary.Temperature,
	})
}

func (w *Writer) generate(ctx context.Context, op string, req llm.Request) (string, error) {
	if w.provider == nil {
		return "", &BackendError{Op: op, Err: llm.ErrNotConfigured}
	}
	text, err := w.provider.Generate(ctx, req)
	if err != nil {
		return "", &BackendError{Op: op, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &BackendError{Op: op, Err: llm.ErrEmptyResponse}
	}
	return text, nil
}

func (w *Writer) referenceText(ctx context.Context, topic topics.Topic) string {
	if w.references == nil || topic.ReferenceURL == "" {
		return ""
	}
	text, err := w.references.Fetch(ctx, topic.ReferenceURL)
	if err != nil {
		log.Printf("Reference fetch failed for %q: %v", topic.Title, err)
		return ""
	}
	return text
}
