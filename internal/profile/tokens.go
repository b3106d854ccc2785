package profile

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"intentrouter/internal/domain"
)

// MinTokenLength is the shortest token kept for lexical overlap checks.
const MinTokenLength = 4

// TokenSet is a set of lowercase salient tokens.
type TokenSet map[string]struct{}

// TokenSets holds one TokenSet per category.
type TokenSets [domain.NumCategories]TokenSet

// Tokenize lower-cases text, splits it on non-alphanumeric runes and keeps
// tokens of at least MinTokenLength runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTokenLength {
			out = append(out, f)
		}
	}
	return out
}

func curatedTokens(list []string) TokenSet {
	set := make(TokenSet, len(list))
	for _, t := range list {
		t = strings.ToLower(strings.TrimSpace(t))
		if utf8.RuneCountInString(t) >= MinTokenLength {
			set[t] = struct{}{}
		}
	}
	return set
}

func derivedTokens(examples []string) TokenSet {
	set := make(TokenSet)
	for _, ex := range examples {
		for _, t := range Tokenize(ex) {
			set[t] = struct{}{}
		}
	}
	return set
}
