// Package sanitize cleans user submitted text before it is stored.
package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML returns the text content of s with markup removed and
// whitespace collapsed. Plain text passes through unchanged apart from
// whitespace.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

// Tags trims, drops empties and removes duplicates, keeping first-seen order.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = StripHTML(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
