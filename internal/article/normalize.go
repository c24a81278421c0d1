package article

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/TobiSchelling/artikle/internal/llm"
)

var markdown = goldmark.New()

// Normalize cleans a generated body. A surrounding code fence is removed and
// a body without any HTML elements is treated as markdown and rendered.
func Normalize(body string) (string, error) {
	body = llm.StripCodeFence(body)
	if body == "" || HasElements(body) {
		return body, nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown body: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// HasElements reports whether s contains at least one HTML tag.
func HasElements(s string) bool {
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			return true
		}
	}
}

// ToMarkdown converts a rendered body to markdown for export.
func ToMarkdown(body string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("converting to markdown: %w", err)
	}
	return out, nil
}
