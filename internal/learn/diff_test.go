package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordDiff(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		corrected string
		expected  []wordReplacement
	}{
		{
			name:      "single substitution",
			original:  "Plata P0S LIDL",
			corrected: "Plata POS LIDL",
			expected:  []wordReplacement{{From: "P0S", To: "POS"}},
		},
		{
			name:      "two substitutions",
			original:  "Plata P0S L1DL BUCURESTI",
			corrected: "Plata POS LIDL BUCURESTI",
			expected: []wordReplacement{
				{From: "P0S", To: "POS"},
				{From: "L1DL", To: "LIDL"},
			},
		},
		{
			name:      "identical",
			original:  "Plata POS LIDL",
			corrected: "Plata POS LIDL",
			expected:  nil,
		},
		{
			name:      "case only difference ignored",
			original:  "plata pos lidl",
			corrected: "Plata POS LIDL",
			expected:  nil,
		},
		{
			name:      "insertion carries no signal",
			original:  "Plata LIDL",
			corrected: "Plata POS LIDL",
			expected:  nil,
		},
		{
			name:      "deletion carries no signal",
			original:  "Plata POS LIDL",
			corrected: "Plata LIDL",
			expected:  nil,
		},
		{
			name:      "empty original",
			original:  "",
			corrected: "Plata POS",
			expected:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, wordDiff(tt.original, tt.corrected))
		})
	}
}
