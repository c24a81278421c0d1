package topics

import (
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

const defaultMaxPerFeed = 10

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL    string
	Title  string
	Source string
}

// FeedConfig represents a single feed configuration.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser turns RSS/Atom items into topic candidates.
type FeedParser struct {
	feeds      []FeedConfig
	maxPerFeed int
	parser     *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(feeds []FeedConfig, maxPerFeed int) *FeedParser {
	if maxPerFeed <= 0 {
		maxPerFeed = defaultMaxPerFeed
	}
	return &FeedParser{feeds: feeds, maxPerFeed: maxPerFeed, parser: gofeed.NewParser()}
}

// ParseAll parses all configured feeds in order. A failing feed is logged
// and skipped.
func (fp *FeedParser) ParseAll() []FeedEntry {
	var all []FeedEntry
	for _, fc := range fp.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := fp.parser.ParseURL(fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		entries := fp.entries(feed, name)
		all = append(all, entries...)
		log.Printf("Parsed %d topics from %s", len(entries), name)
	}
	return all
}

// ParseString parses a feed document held in memory.
func (fp *FeedParser) ParseString(data, source string) ([]FeedEntry, error) {
	feed, err := fp.parser.ParseString(data)
	if err != nil {
		return nil, err
	}
	return fp.entries(feed, source), nil
}

func (fp *FeedParser) entries(feed *gofeed.Feed, source string) []FeedEntry {
	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= fp.maxPerFeed {
			break
		}
		if entry := parseItem(item, source); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	title := strings.Join(strings.Fields(item.Title), " ")
	if title == "" {
		return nil
	}

	itemURL := item.Link
	if itemURL == "" && strings.HasPrefix(item.GUID, "http") {
		itemURL = item.GUID
	}

	return &FeedEntry{
		URL:    itemURL,
		Title:  title,
		Source: source,
	}
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
