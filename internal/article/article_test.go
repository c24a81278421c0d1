package article

import (
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

var slugPattern = regexp.MustCompile(`^[\p{L}\p{N}_-]*$`)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Solar Panels":                "Solar-Panels",
		"AI Ethics: What's Next?":     "AI-Ethics-Whats-Next",
		"  multiple   spaces\there  ": "multiple-spaces-here",
		"Café Déjà-vu_2":              "Café-Déjà-vu_2",
		"???":                         "article",
		"":                            "article",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugifyCharset(t *testing.T) {
	inputs := []string{
		"a/b\\c", "<script>alert(1)</script>", "tab\tnew\nline", "emoji 🚀 launch",
		"日本語 タイトル", "100% pure", "dots...and,commas", "\xff\xfeinvalid",
	}
	for _, in := range inputs {
		if got := Slugify(in); !slugPattern.MatchString(got) {
			t.Errorf("Slugify(%q) = %q contains disallowed characters", in, got)
		}
	}
}

func TestExcerpt(t *testing.T) {
	body := "<p>Héllo wörld</p>"
	for _, n := range []int{0, 1, 5, 17, 300} {
		got := Excerpt(body, n)
		want := n
		if l := utf8.RuneCountInString(body); l < n {
			want = l
		}
		if utf8.RuneCountInString(got) != want {
			t.Errorf("Excerpt(n=%d) has %d runes, want %d", n, utf8.RuneCountInString(got), want)
		}
		if !strings.HasPrefix(body, got) {
			t.Errorf("Excerpt(n=%d) = %q is not a prefix", n, got)
		}
	}
}

func TestAssembleAndRender(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	doc := Assemble("<h1>Solar</h1><p>Panels & power</p>", "Solar & Wind", date)

	if doc.Slug != "Solar--Wind" {
		t.Errorf("unexpected slug %q", doc.Slug)
	}
	if doc.Filename() != "Solar--Wind.html" {
		t.Errorf("unexpected filename %q", doc.Filename())
	}

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Solar &amp; Wind</title>",
		`<meta name="publishedAt" content="2026-03-14">`,
		"<h1>Solar</h1><p>Panels & power</p>",
		"</html>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered document missing %q:\n%s", want, out)
		}
	}
}

func TestAssembleIsPure(t *testing.T) {
	date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	a := Assemble("<p>x</p>", "T", date)
	b := Assemble("<p>x</p>", "T", date)
	if a != b {
		t.Errorf("expected identical documents, got %+v and %+v", a, b)
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("```html\n<h2>Heat Pumps</h2>\n<p>Efficient.</p>\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<h2>Heat Pumps</h2>\n<p>Efficient.</p>" {
		t.Errorf("unexpected fenced result %q", got)
	}

	got, err = Normalize("## Heat Pumps\n\nThey are **efficient**.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "<h2>Heat Pumps</h2>") || !strings.Contains(got, "<strong>efficient</strong>") {
		t.Errorf("expected markdown rendered to HTML, got %q", got)
	}
}

func TestHasElements(t *testing.T) {
	if HasElements("plain text with a < b") {
		t.Error("expected no elements in plain text")
	}
	if !HasElements("intro <br/> more") {
		t.Error("expected self-closing tag to count")
	}
}

func TestToMarkdown(t *testing.T) {
	got, err := ToMarkdown("<h1>Solar</h1><p>Panels are <strong>great</strong>.</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "# Solar") || !strings.Contains(got, "**great**") {
		t.Errorf("unexpected markdown %q", got)
	}
}
