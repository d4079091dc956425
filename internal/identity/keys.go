package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// ThumbnailKey derives the stable thumbnail lookup key for a known identity
// from its display name (lowercase, no diacritics, underscores for spaces).
// Provisional identities use their unknown_<n> id directly.
func ThumbnailKey(name string) string {
	key := removeDiacritics(name)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	return key
}
