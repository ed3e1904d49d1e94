// Package query holds search query normalization and parsing of brainstormed lists.
package query

import (
	"regexp"
	"strings"
)

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// Normalize strips a leading ordinal prefix ("1. ") and surrounding double quotes.
// It must be applied before a query reaches any retriever.
func Normalize(q string) string {
	cleaned := ordinalPrefix.ReplaceAllString(q, "")
	return strings.Trim(cleaned, `"`)
}

// ParseList splits a brainstorm completion into at most n queries, one per line.
// Blank lines are not queries. A short list is returned as is, never padded.
func ParseList(text string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, n)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == n {
			break
		}
	}
	return out
}
