// Package learn holds the online-trained auxiliary line classifier and the
// feedback processor that drives incremental learning.
package learn

import (
	"regexp"
	"strings"
	"unicode"
)

// FeatureCount is the fixed input size of the line classifier.
const FeatureCount = 10

var (
	dateLikeRe   = regexp.MustCompile(`\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}-\d{2}-\d{2}`)
	amountLikeRe = regexp.MustCompile(`\d[.,]\d{2}\b`)
)

var transactionKeywords = []string{
	"plata", "pos", "transfer", "cumparare", "retragere", "comision",
	"incasare", "card", "tranzactie",
}

var sourceKeywords = []string{
	"transilvania", "bcr", "ing", "brd", "raiffeisen", "revolut",
}

var currencyTokens = []string{"ron", "eur", "usd", "lei"}

// Features derives the fixed feature vector the classifier consumes from a
// raw statement line.
func Features(line string) []float64 {
	f := make([]float64, FeatureCount)
	if line == "" {
		return f
	}

	runes := []rune(line)
	total := float64(len(runes))

	var digits, uppers, spaces, puncts float64
	for _, r := range runes {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsUpper(r):
			uppers++
		case unicode.IsSpace(r):
			spaces++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			puncts++
		}
	}

	lower := strings.ToLower(line)

	f[0] = digits / total
	f[1] = uppers / total
	f[2] = spaces / total
	f[3] = boolFeature(dateLikeRe.MatchString(line))
	f[4] = boolFeature(amountLikeRe.MatchString(line))
	f[5] = boolFeature(containsAny(lower, transactionKeywords))
	f[6] = clamp(total/100.0, 0, 1)
	f[7] = boolFeature(containsAny(lower, sourceKeywords))
	f[8] = puncts / total
	f[9] = boolFeature(containsAny(lower, currencyTokens))

	return f
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
