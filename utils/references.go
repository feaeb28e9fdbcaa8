// utils/references.go - Reference pattern extraction for citation matching
package utils

import (
	"regexp"
	"strings"
)

var (
	// doiPattern matches DOI strings such as 10.1000/xyz123.
	doiPattern = regexp.MustCompile(`10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)

	// authorYearPattern matches narrative citations such as "Smith (2021)"
	// or "Smith et al. (2021)".
	authorYearPattern = regexp.MustCompile(`[A-Z][A-Za-z'\-]+(?:\s+et\s+al\.?)?\s+\((19|20)\d{2}\)`)
)

// ExtractReferencePatterns pulls DOI and "Author (Year)" citation patterns
// out of free text. The result is normalized (lowercased, trailing
// punctuation stripped) and deduplicated, preserving first-seen order.
func ExtractReferencePatterns(text string) []string {
	if text == "" {
		return nil
	}

	var patterns []string
	seen := make(map[string]bool)

	add := func(raw string) {
		normalized := normalizeReference(raw)
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		patterns = append(patterns, normalized)
	}

	for _, match := range doiPattern.FindAllString(text, -1) {
		add(match)
	}
	for _, match := range authorYearPattern.FindAllString(text, -1) {
		add(match)
	}

	return patterns
}

func normalizeReference(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".,;")
	// Collapse internal runs of whitespace so "Smith  (2021)" and
	// "Smith (2021)" compare equal.
	return strings.Join(strings.Fields(s), " ")
}
