// Package slug builds URL-safe identifiers for categories and products.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Make lower-cases s, folds accented latin letters to ascii and joins the remaining
// letter/digit runs with single dashes. Non-latin scripts keep their marks, so Thai
// vowels and tone marks survive.
func Make(s string) string {
	var folded strings.Builder
	var base rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if unicode.Is(unicode.Latin, base) {
				continue
			}
		} else {
			base = r
		}
		folded.WriteRune(r)
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(norm.NFC.String(folded.String())) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Valid reports whether s is already in the form Make produces.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}
