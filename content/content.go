// Package content handles turning HTML-bearing comment bodies into
// plain text for push messages and mail excerpts.
package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML removes all markup from an HTML fragment and returns the
// text content with collapsed whitespace. Parse failures fall back to
// the raw input so a malformed comment still produces a message.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	// Block-level elements become line breaks so adjacent paragraphs
	// don't run together in push bodies.
	doc.Find("br, p, div, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return collapse(doc.Text())
}

// Excerpt returns the plain text of fragment truncated to max runes,
// with an ellipsis when shortened.
func Excerpt(fragment string, max int) string {
	text := StripHTML(fragment)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
