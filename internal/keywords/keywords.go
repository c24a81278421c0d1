package keywords

import (
	_ "embed"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// Limit is the maximum number of categories derived from a text.
	Limit = 6
	// TagCount is how many trailing categories are reused as tags.
	TagCount = 2
)

//go:embed stopwords_en.txt
var englishStopwords string

// Set is the keyword metadata derived from a summary.
type Set struct {
	Categories []string
	Tags       []string
}

// Extractor ranks the non-stopword words of a short text by frequency.
type Extractor struct {
	stopwords map[string]struct{}
}

// New creates an extractor with the given stopword list.
func New(stopwords []string) *Extractor {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		w = strings.TrimSpace(strings.ToLower(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Extractor{stopwords: stops}
}

// Default returns an extractor using the embedded English stopword list.
func Default() *Extractor {
	return New(EnglishStopwords())
}

// EnglishStopwords returns a copy of the embedded English stopword list.
func EnglishStopwords() []string {
	return strings.Fields(englishStopwords)
}

// Extract returns up to Limit categories ordered by descending frequency,
// ties broken by first occurrence, and the last TagCount of them as tags.
// Tags are a suffix of Categories, so the two overlap whenever fewer than
// Limit+TagCount distinct words exist.
func (e *Extractor) Extract(text string) Set {
	ranked := e.Rank(text)
	if len(ranked) > Limit {
		ranked = ranked[:Limit]
	}

	tags := ranked
	if len(tags) > TagCount {
		tags = tags[len(tags)-TagCount:]
	}

	return Set{
		Categories: ranked,
		Tags:       append([]string(nil), tags...),
	}
}

// Rank returns every qualifying word once, most frequent first.
func (e *Extractor) Rank(text string) []string {
	counts := make(map[string]int)
	var order []string

	for _, word := range Tokenize(text) {
		if !isAlpha(word) || e.IsStopword(word) {
			continue
		}
		if _, seen := counts[word]; !seen {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order
}

// IsStopword reports whether word is in the extractor's stopword set.
func (e *Extractor) IsStopword(word string) bool {
	_, ok := e.stopwords[word]
	return ok
}

// Tokenize lowercases text and splits it into word tokens. Leading and
// trailing punctuation is split off and contractions are cut at the
// apostrophe; inner punctuation such as hyphens stays part of the token.
func Tokenize(text string) []string {
	text = strings.ToLower(norm.NFC.String(text))

	var tokens []string
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, isEdgePunct)
		if i := strings.IndexAny(word, "'’"); i >= 0 {
			if head := word[:i]; head != "" {
				tokens = append(tokens, head)
			}
			if tail := strings.TrimFunc(word[i:], isEdgePunct); tail != "" {
				tokens = append(tokens, tail)
			}
			continue
		}
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func isEdgePunct(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
