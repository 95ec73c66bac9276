// Package textutil provides shared text normalization and similarity helpers.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldDiacritics strips combining marks so "Brașov" and "Brasov" normalize
// to the same form.
func FoldDiacritics(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeMerchant produces the canonical lookup key for a merchant name:
// diacritics folded, lowercased, punctuation collapsed to single spaces,
// trailing store/location numbers dropped.
func NormalizeMerchant(name string) string {
	s := strings.ToLower(FoldDiacritics(name))

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	fields := strings.Fields(b.String())
	// Drop trailing pure-numeric tokens (store numbers, terminal ids).
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if !isNumeric(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}

	return strings.Join(fields, " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Tokenize splits text into lowercase word tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(FoldDiacritics(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
