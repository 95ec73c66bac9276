package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldDiacritics(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"comma below", "plată Brașov", "plata Brasov"},
		{"cedilla forms", "tranzacţie şi", "tranzactie si"},
		{"breve", "cumpărare", "cumparare"},
		{"no diacritics", "LIDL BUCURESTI", "LIDL BUCURESTI"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FoldDiacritics(tt.input))
		})
	}
}

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase and fold", "LIDL Brașov", "lidl brasov"},
		{"punctuation collapses", "MEGA-IMAGE*BUCURESTI", "mega image bucuresti"},
		{"trailing store number dropped", "LIDL BUCURESTI 0042", "lidl bucuresti"},
		{"multiple trailing numbers dropped", "PROFI 12 345", "profi"},
		{"lone number kept", "7777", "7777"},
		{"inner number kept", "H&M 24 STORE", "h m 24 store"},
		{"whitespace collapsed", "  OMV   Petrom  ", "omv petrom"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMerchant(tt.input))
		})
	}
}

func TestNormalizeMerchantSameKeyForVariants(t *testing.T) {
	// Different renderings of the same merchant must collapse to one key.
	variants := []string{
		"LIDL BUCURESTI",
		"Lidl Bucuresti",
		"LIDL-BUCURESTI",
		"LIDL BUCUREȘTI",
		"lidl bucuresti 123",
	}

	key := NormalizeMerchant(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, key, NormalizeMerchant(v), "variant %q", v)
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Plată POS: LIDL, 125.40 RON")
	assert.Equal(t, []string{"plata", "pos", "lidl", "125", "40", "ron"}, tokens)
}
