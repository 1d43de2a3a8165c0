package pipeline

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// LooksLikeSourceLanguage reports whether text contains at least one
// Cyrillic letter. Decomposed input is composed first so a combining
// breve on и still counts as й.
func LooksLikeSourceLanguage(text string) bool {
	for _, r := range norm.NFC.String(text) {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}
