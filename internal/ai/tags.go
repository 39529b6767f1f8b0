package ai

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTag folds diacritics, lowercases and collapses whitespace so tags
// compare and deduplicate consistently ("Côte d'Azur" and "cote d'azur" are
// the same tag).
func NormalizeTag(tag string) string {
	folded, _, err := transform.String(foldDiacritics, tag)
	if err != nil {
		folded = tag
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// normalizeTags applies NormalizeTag to each tag and removes empty strings
// and duplicates, preserving first-seen order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}
