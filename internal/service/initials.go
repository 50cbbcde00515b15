package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Initials derives an avatar label from a display name: the first letters of
// the first two tokens split on whitespace or '@', uppercased. It returns "?"
// when the name has no tokens.
func Initials(display string) string {
	tokens := strings.FieldsFunc(display, func(r rune) bool {
		return r == '@' || unicode.IsSpace(r)
	})
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}

	// A Caser holds state, so each call gets its own.
	upper := cases.Upper(language.Und)
	var sb strings.Builder
	for _, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		sb.WriteString(upper.String(string(r)))
	}
	if sb.Len() == 0 {
		return "?"
	}
	return sb.String()
}
