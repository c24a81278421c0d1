package topics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/TobiSchelling/artikle/internal/config"
)

// ErrNoTopics is returned when the configured sources yield nothing to process.
var ErrNoTopics = errors.New("no topics found")

// Topic is one unit of work: a title driving one article and image.
type Topic struct {
	Title        string
	ReferenceURL string
	Source       string
}

// Result holds the outcome of collecting topics.
type Result struct {
	Topics     []Topic
	Duplicates int
	Sources    map[string]int
}

// LoadCSV reads topics from a headerless CSV file. Column 1 is the title,
// an optional column 2 is a reference URL. Blank rows are skipped.
func LoadCSV(path string) ([]Topic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening topics file: %w", err)
	}
	defer f.Close()

	topics, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return topics, nil
}

// ReadCSV parses topics from r. See LoadCSV.
func ReadCSV(r io.Reader) ([]Topic, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var topics []Topic
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing CSV: %w", err)
		}
		line++

		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			log.Printf("Skipping blank topic row %d", line)
			continue
		}
		t := Topic{Title: strings.TrimSpace(row[0]), Source: "file"}
		if len(row) > 1 {
			t.ReferenceURL = strings.TrimSpace(row[1])
		}
		topics = append(topics, t)
	}
	return topics, nil
}

// Collector gathers topics from the topics file, RSS feeds and NewsAPI.
type Collector struct {
	topicsFile   string
	feedParser   *FeedParser
	newsClient   *NewsAPIClient
	newsQuery    string
	newsPageSize int
}

// NewCollector creates a topic collector from configuration.
func NewCollector(cfg *config.Config) *Collector {
	c := &Collector{topicsFile: cfg.Input.TopicsFile}

	if len(cfg.Input.Feeds) > 0 {
		feeds := make([]FeedConfig, len(cfg.Input.Feeds))
		for i, f := range cfg.Input.Feeds {
			feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
		}
		c.feedParser = NewFeedParser(feeds, cfg.Input.MaxFeedItems)
	}

	apiCfg := cfg.Input.NewsAPI
	if apiCfg.Enabled && apiCfg.Query != "" {
		c.newsClient = NewNewsAPIClient(os.Getenv(apiCfg.APIKeyEnv))
		c.newsQuery = apiCfg.Query
		c.newsPageSize = apiCfg.PageSize
	}

	return c
}

// SetTopicsFile overrides the configured topics file.
func (c *Collector) SetTopicsFile(path string) {
	c.topicsFile = path
}

// Collect loads the topics file, then appends feed and NewsAPI topics.
// A missing or malformed topics file is an error; feed failures only log.
// Titles are deduplicated case-insensitively, first occurrence wins.
func (c *Collector) Collect() (*Result, error) {
	r := &Result{Sources: make(map[string]int)}
	seen := make(map[string]struct{})

	add := func(t Topic) {
		key := strings.ToLower(strings.TrimSpace(t.Title))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			r.Duplicates++
			return
		}
		seen[key] = struct{}{}
		r.Topics = append(r.Topics, t)
		r.Sources[t.Source]++
	}

	if c.topicsFile != "" {
		fileTopics, err := LoadCSV(c.topicsFile)
		if err != nil {
			return nil, err
		}
		for _, t := range fileTopics {
			add(t)
		}
	}

	if c.feedParser != nil {
		log.Println("Collecting topics from RSS feeds...")
		for _, entry := range c.feedParser.ParseAll() {
			add(Topic{Title: entry.Title, ReferenceURL: entry.URL, Source: entry.Source})
		}
	}

	if c.newsClient != nil && c.newsClient.IsConfigured() {
		log.Println("Collecting topics from NewsAPI...")
		for _, a := range c.newsClient.Search(c.newsQuery, c.newsPageSize) {
			add(Topic{Title: a.Title, ReferenceURL: a.URL, Source: a.Source})
		}
	}

	if len(r.Topics) == 0 {
		return nil, ErrNoTopics
	}

	log.Printf("Collected %d topics (%d duplicates skipped)", len(r.Topics), r.Duplicates)
	return r, nil
}
