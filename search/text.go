package search

import "strings"

// cleanKeywords trims whitespace and stray punctuation from model-produced
// keywords, dropping empties and case-insensitive duplicates. Order of
// first appearance is kept.
func cleanKeywords(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	keywords := make([]string, 0, len(raw))

	for _, word := range raw {
		cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(word), ".,!?;:'\"()[]{}"))
		if cleaned == "" {
			continue
		}
		folded := strings.ToLower(cleaned)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		keywords = append(keywords, cleaned)
	}

	return keywords
}
