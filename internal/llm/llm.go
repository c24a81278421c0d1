package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	llmerrors "github.com/aktagon/llmkit/errors"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// Request is a single chat completion request.
type Request struct {
	System      string
	Prompt      string
	Model       string // overrides the provider's default model when set
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for LLM providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	IsConfigured() bool
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Printf("Ollama model %q not found", o.Model)
	return false
}

// Generate sends a prompt to Ollama and returns the response.
func (o *OllamaProvider) Generate(ctx context.Context, r Request) (string, error) {
	model := r.Model
	if model == "" {
		model = o.Model
	}

	body := map[string]any{
		"model":    model,
		"messages": messages(r),
		"stream":   false,
		"options": map[string]any{
			"num_predict": r.MaxTokens,
			"temperature": r.Temperature,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: "ollama", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return nonEmpty(result.Message.Content)
}

// OpenAIProvider is an OpenAI API provider.
type OpenAIProvider struct {
	Model   string
	BaseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider. The key is passed in
// explicitly; an empty baseURL selects the public API.
func NewOpenAIProvider(model, apiKey, baseURL string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAIProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.apiKey != ""
}

// Generate sends a prompt to OpenAI and returns the response.
func (o *OpenAIProvider) Generate(ctx context.Context, r Request) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	model := r.Model
	if model == "" {
		model = o.Model
	}

	body := map[string]any{
		"model":       model,
		"messages":    messages(r),
		"temperature": r.Temperature,
	}
	if r.MaxTokens > 0 {
		body["max_tokens"] = r.MaxTokens
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices: %w", ErrEmptyResponse)
	}

	return nonEmpty(result.Choices[0].Message.Content)
}

// AnthropicProvider calls the Anthropic messages API through llmkit.
type AnthropicProvider struct {
	Model   string
	apiKey  string
	timeout time.Duration
	prompt  func(system, user, apiKey string, settings types.RequestSettings) (*types.AnthropicResponse, error)
}

// NewAnthropicProvider creates a new Anthropic provider. A zero timeout
// leaves only the caller's context as the deadline.
func NewAnthropicProvider(model, apiKey string, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		Model:   model,
		apiKey:  apiKey,
		timeout: timeout,
		prompt: func(system, user, apiKey string, settings types.RequestSettings) (*types.AnthropicResponse, error) {
			return anthropic.PromptWithSettings(system, user, "", apiKey, settings)
		},
	}
}

// IsConfigured checks if the API key is set.
func (a *AnthropicProvider) IsConfigured() bool {
	return a.apiKey != ""
}

type anthropicResult struct {
	resp *types.AnthropicResponse
	err  error
}

// Generate sends a prompt to Anthropic and returns the first text block.
// llmkit takes no context, so the call runs in its own goroutine and is
// abandoned when ctx or the provider timeout expires.
func (a *AnthropicProvider) Generate(ctx context.Context, r Request) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	model := r.Model
	if model == "" {
		model = a.Model
	}
	settings := types.RequestSettings{
		Model:       model,
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	}

	done := make(chan anthropicResult, 1)
	go func() {
		resp, err := a.prompt(r.System, r.Prompt, a.apiKey, settings)
		done <- anthropicResult{resp: resp, err: err}
	}()

	var res anthropicResult
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic: %w", ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return "", anthropicError(res.err)
	}
	if res.resp == nil || len(res.resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content: %w", ErrEmptyResponse)
	}
	return nonEmpty(res.resp.Content[0].Text)
}

// anthropicError maps llmkit errors onto this package's error types so
// retries can tell permanent failures from temporary ones.
func anthropicError(err error) error {
	var apiErr *llmerrors.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	var valErr *llmerrors.ValidationError
	if errors.As(err, &valErr) {
		return fmt.Errorf("anthropic: %s: %w", valErr.Message, ErrNotConfigured)
	}
	return fmt.Errorf("anthropic API error: %w", err)
}

// ProviderConfig selects and configures a text provider.
type ProviderConfig struct {
	Provider  string // openai, ollama or anthropic
	Model     string
	APIKey    string
	OllamaURL string
	OpenAIURL string
	Timeout   time.Duration
}

// CreateProvider creates an LLM provider based on configuration.
func CreateProvider(cfg ProviderConfig) (Provider, error) {
	var p Provider
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		p = NewOllamaProvider(cfg.Model, cfg.OllamaURL, cfg.Timeout)
	case "anthropic":
		p = NewAnthropicProvider(cfg.Model, cfg.APIKey, cfg.Timeout)
	case "openai", "":
		p = NewOpenAIProvider(cfg.Model, cfg.APIKey, cfg.OpenAIURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if !p.IsConfigured() {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrNotConfigured)
	}
	log.Printf("Using %s with model: %s", cfg.Provider, cfg.Model)
	return p, nil
}

func messages(r Request) []map[string]string {
	var msgs []map[string]string
	if r.System != "" {
		msgs = append(msgs, map[string]string{"role": "system", "content": r.System})
	}
	return append(msgs, map[string]string{"role": "user", "content": r.Prompt})
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
