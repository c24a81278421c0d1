package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is used for the XDG config and data directories.
const AppName = "artikle"

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Input      Input      `yaml:"input"`
	Output     Output     `yaml:"output"`
	Generation Generation `yaml:"generation"`
	Image      Image      `yaml:"image"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Input struct {
	TopicsFile      string  `yaml:"topics_file"`
	FetchReferences bool    `yaml:"fetch_references"`
	Feeds           []Feed  `yaml:"feeds"`
	MaxFeedItems    int     `yaml:"max_feed_items"`
	NewsAPI         NewsAPI `yaml:"newsapi"`
}

type Feed struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type NewsAPI struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env"`
	Query     string `yaml:"query"`
	PageSize  int    `yaml:"page_size"`
}

type Output struct {
	Dir            string `yaml:"dir"`
	ImagesDir      string `yaml:"images_dir"`
	IndexFile      string `yaml:"index_file"`
	ReportFile     string `yaml:"report_file"`
	ExcerptLength  int    `yaml:"excerpt_length"`
	ExportMarkdown bool   `yaml:"export_markdown"`
	DataDir        string `yaml:"data_dir"`
}

type Generation struct {
	Provider  string        `yaml:"provider"`
	APIKeyEnv string        `yaml:"api_key_env"`
	OllamaURL string        `yaml:"ollama_url"`
	OpenAIURL string        `yaml:"openai_url"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     Retry         `yaml:"retry"`
	Article   Model         `yaml:"article"`
	Summary   Model         `yaml:"summary"`
}

type Retry struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

type Model struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type Image struct {
	Enabled    bool          `yaml:"enabled"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	OpenAIURL  string        `yaml:"openai_url"`
	Model      string        `yaml:"model"`
	Size       string        `yaml:"size"`
	Quality    string        `yaml:"quality"`
	Background string        `yaml:"background"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for artikle.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory for artikle.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ResolveConfigPath finds the config file following priority:
// explicit path > $XDG_CONFIG_HOME/artikle/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'artikle init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Input: Input{
			TopicsFile:      "topics.csv",
			FetchReferences: true,
			MaxFeedItems:    10,
			NewsAPI: NewsAPI{
				APIKeyEnv: "NEWSAPI_KEY",
				PageSize:  20,
			},
		},
		Output: Output{
			Dir:           ".",
			ImagesDir:     "images",
			IndexFile:     "articles_summary.csv",
			ReportFile:    "run-report.md",
			ExcerptLength: 300,
		},
		Generation: Generation{
			Provider:  "openai",
			APIKeyEnv: "OPENAI_API_KEY",
			OllamaURL: "http://localhost:11434",
			Timeout:   120 * time.Second,
			Retry:     Retry{MaxAttempts: 1, Backoff: 2 * time.Second},
			Article:   Model{Model: "gpt-4-1106-preview", Temperature: 0.5, MaxTokens: 4096},
			Summary:   Model{Model: "gpt-3.5-turbo-1106", Temperature: 0.7, MaxTokens: 16},
		},
		Image: Image{
			Enabled:    true,
			APIKeyEnv:  "OPENAI_API_KEY",
			Model:      "dall-e-3",
			Size:       "1792x1024",
			Quality:    "standard",
			Background: "#2c4a20",
			Timeout:    120 * time.Second,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Generation.Provider) {
	case "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Generation.Provider)
	}
	if c.Output.ExcerptLength < 0 {
		return ErrInvalidExcerptLength
	}
	if c.Generation.Timeout <= 0 || (c.Image.Enabled && c.Image.Timeout <= 0) {
		return ErrInvalidTimeout
	}
	if c.Generation.Retry.MaxAttempts < 1 {
		return ErrInvalidRetry
	}
	if c.Output.IndexFile == "" {
		return ErrNoIndexFile
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// APIKey reads the generation backend credential from the configured env var.
func (g Generation) APIKey() string {
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// APIKey reads the image backend credential from the configured env var.
func (i Image) APIKey() string {
	if i.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(i.APIKeyEnv)
}
