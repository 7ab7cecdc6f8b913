package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that carry no combining mark under NFD and need an explicit ASCII
// replacement.
var strokeLetters = map[rune]rune{
	'ł': 'l', 'Ł': 'L',
	'ø': 'o', 'Ø': 'O',
	'đ': 'd', 'Đ': 'D',
	'ħ': 'h', 'Ħ': 'H',
}

func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if a, ok := strokeLetters[r]; ok {
				return a
			}
			return r
		}),
		norm.NFC,
	)
}

// Fold strips diacritics from s, so "Łukasz Dvořák" becomes "Lukasz Dvorak".
// Case and punctuation are kept.
func Fold(s string) string {
	out, _, err := transform.String(newFolder(), s)
	if err != nil {
		return s
	}
	return out
}

// NameKey is the form identity names are compared in: folded, lowercase,
// with dashes, underscores and whitespace runs collapsed to a single space.
func NameKey(name string) string {
	name = strings.ToLower(Fold(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	}), " ")
}

// NameContains reports whether query occurs in name after both are reduced
// with NameKey. An empty query matches every name.
func NameContains(name, query string) bool {
	q := NameKey(query)
	return q == "" || strings.Contains(NameKey(name), q)
}
