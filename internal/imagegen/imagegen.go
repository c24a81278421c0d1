package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/TobiSchelling/artikle/internal/llm"
)

// DefaultBackground is the blueprint background colour.
const DefaultBackground = "#2c4a20"

const promptTemplate = "Create a technical illustration of a '%[1]s'. " +
	"The drawing should use multiple lines to depict the detailed structure and components commonly found in '%[1]s'. " +
	"The focus should be on accuracy and clarity, providing a precise and informative view of the '%[1]s'. " +
	"The style should resemble a schematic or blueprint, commonly used in engineering and technical documentation, " +
	"with clear lines set against a solid block color background of hex %[2]s. " +
	"Do not include words. Do not include numbers."

// maxDownload caps the size of a downloaded image.
const maxDownload = 32 << 20

// Artifact is a generated image stored on disk.
type Artifact struct {
	Path   string // relative to the output directory
	Width  int
	Height int
}

// Options configures the image request.
type Options struct {
	Model      string
	Size       string
	Quality    string
	Background string
	Timeout    time.Duration
}

// Generator renders illustrations and stores them as PNG files.
type Generator struct {
	provider  llm.ImageProvider
	client    *http.Client
	outDir    string
	imagesDir string
	opts      Options
}

// New creates a generator writing to <outDir>/<imagesDir>.
func New(provider llm.ImageProvider, outDir, imagesDir string, opts Options) *Generator {
	if opts.Model == "" {
		opts.Model = "dall-e-3"
	}
	if opts.Size == "" {
		opts.Size = "1792x1024"
	}
	if opts.Quality == "" {
		opts.Quality = "standard"
	}
	if opts.Background == "" {
		opts.Background = DefaultBackground
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if imagesDir == "" {
		imagesDir = "images"
	}
	return &Generator{
		provider:  provider,
		client:    &http.Client{Timeout: opts.Timeout},
		outDir:    outDir,
		imagesDir: imagesDir,
		opts:      opts,
	}
}

// Prompt builds the blueprint illustration prompt for a summary.
func Prompt(summary, background string) string {
	return fmt.Sprintf(promptTemplate, summary, background)
}

// Generate requests an illustration for summary and stores it under key.
// Every failure is logged and reported as a nil artifact.
func (g *Generator) Generate(ctx context.Context, summary, key string) *Artifact {
	a, err := g.generate(ctx, summary, key)
	if err != nil {
		log.Printf("Image generation failed for %q: %v", key, err)
		return nil
	}
	log.Printf("Saved image %s (%dx%d)", a.Path, a.Width, a.Height)
	return a
}

func (g *Generator) generate(ctx context.Context, summary, key string) (*Artifact, error) {
	if g.provider == nil {
		return nil, llm.ErrNotConfigured
	}

	imageURL, err := g.provider.GenerateImage(ctx, llm.ImageRequest{
		Prompt:  Prompt(summary, g.opts.Background),
		Model:   g.opts.Model,
		Size:    g.opts.Size,
		Quality: g.opts.Quality,
	})
	if err != nil {
		return nil, err
	}

	data, err := g.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if format != "png" {
		log.Printf("Converting %s image to png", format)
	}

	dir := filepath.Join(g.outDir, g.imagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images dir: %w", err)
	}

	name := key + ".png"
	if err := writePNG(filepath.Join(dir, name), img); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &Artifact{
		Path:   path.Join(filepath.ToSlash(g.imagesDir), name),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func (g *Generator) download(ctx context.Context, imageURL string) ([]byte, error) {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, fmt.Errorf("unsupported image url %q", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloading image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return data, nil
}

func writePNG(dest string, img image.Image) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("encoding png: %w", err)
	}
	return f.Close()
}
