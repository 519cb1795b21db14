package domain

import (
	"regexp"
	"strings"
)

// Counter counts vocabulary terms in normalized text. It is safe for
// concurrent use; the compiled patterns are never modified.
type Counter struct {
	patterns []termPattern
}

type termPattern struct {
	term string
	re   *regexp.Regexp
}

// NewCounter compiles one boundary-anchored, case-insensitive pattern per
// term. Term text is quoted so punctuation is matched literally.
func NewCounter(v Vocabulary) *Counter {
	terms := v.Terms()
	c := &Counter{patterns: make([]termPattern, 0, len(terms))}
	for _, term := range terms {
		c.patterns = append(c.patterns, termPattern{
			term: term,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`),
		})
	}
	return c
}

// Count returns the number of non-overlapping matches of each term in
// text. Every term is present in the result, zero when absent.
func (c *Counter) Count(text string) map[string]int {
	counts := make(map[string]int, len(c.patterns))
	for _, p := range c.patterns {
		counts[p.term] = len(p.re.FindAllStringIndex(text, -1))
	}
	return counts
}

// Normalize collapses every run of whitespace to a single space and trims
// the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
