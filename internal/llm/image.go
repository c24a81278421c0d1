package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageRequest asks for a single generated image.
type ImageRequest struct {
	Prompt  string
	Model   string
	Size    string
	Quality string
}

// ImageProvider returns the URL of a generated image.
type ImageProvider interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// OpenAIImageProvider calls the OpenAI images endpoint.
type OpenAIImageProvider struct {
	BaseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAIImageProvider creates an image provider. An empty baseURL selects
// the public API.
func NewOpenAIImageProvider(apiKey, baseURL string, timeout time.Duration) *OpenAIImageProvider {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAIImageProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the API key is set.
func (o *OpenAIImageProvider) IsConfigured() bool {
	return o.apiKey != ""
}

// GenerateImage requests one image and returns its download URL.
func (o *OpenAIImageProvider) GenerateImage(ctx context.Context, r ImageRequest) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("openai images: %w", ErrNotConfigured)
	}

	body := map[string]any{
		"model":   r.Model,
		"prompt":  r.Prompt,
		"size":    r.Size,
		"quality": r.Quality,
		"n":       1,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/images/generations", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenAI images error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Provider: "openai images", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].URL == "" {
		return "", fmt.Errorf("openai images: no image url: %w", ErrEmptyResponse)
	}
	return result.Data[0].URL, nil
}
