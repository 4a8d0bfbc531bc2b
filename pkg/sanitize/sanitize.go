// Package sanitize folds accented characters to plain ASCII so values survive
// the device's REST API, which mangles non-ASCII text in queue names and
// comments.
package sanitize

import "strings"

var asciiFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a', 'ã': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o', 'õ': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c',
	'Á': 'A', 'À': 'A', 'Ä': 'A', 'Â': 'A', 'Ã': 'A',
	'É': 'E', 'È': 'E', 'Ë': 'E', 'Ê': 'E',
	'Í': 'I', 'Ì': 'I', 'Ï': 'I', 'Î': 'I',
	'Ó': 'O', 'Ò': 'O', 'Ö': 'O', 'Ô': 'O', 'Õ': 'O',
	'Ú': 'U', 'Ù': 'U', 'Ü': 'U', 'Û': 'U',
	'Ñ': 'N', 'Ç': 'C',
}

// Text replaces every mapped accented rune with its ASCII counterpart.
// Unmapped runes pass through unchanged.
func Text(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := asciiFold[r]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Slug lowercases, folds accents and joins words with dashes, producing a
// device-safe identifier fragment.
func Slug(s string) string {
	folded := strings.ToLower(Text(strings.TrimSpace(s)))
	return strings.Join(strings.Fields(folded), "-")
}
