package scrape

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTerm canonicalizes a search term: NFKC normalization plus
// whitespace collapsing. The registry serves names with combining marks
// and width variants that would otherwise defeat comparisons.
func NormalizeTerm(term string) string {
	term = norm.NFKC.String(term)
	return strings.Join(strings.Fields(term), " ")
}

// MatchKey derives a comparison key: diacritics stripped and case folded.
// Used for email fast-match comparisons where the registry renders
// addresses with locale-specific characters.
func MatchKey(value string) string {
	stripped, _, err := transform.String(stripMarks, strings.TrimSpace(value))
	if err != nil {
		stripped = value
	}
	return strings.ToLower(stripped)
}
