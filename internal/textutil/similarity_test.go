package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"lidl", "lidl", 0},
		{"lidl", "lidi", 1},
		{"kaufland", "kauflend", 1},
		{"bcr", "brd", 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("lidl", "LIDL"))
	assert.Equal(t, 0.0, Similarity("lidl", ""))

	// One-character typo on a medium-length name stays high.
	assert.Greater(t, Similarity("kaufland", "kauflend"), 0.8)

	// Prefix relationship earns the bonus.
	withPrefix := Similarity("mega image", "mega image bucuresti")
	withoutPrefix := 1.0 - float64(Levenshtein("mega image", "mega image bucuresti"))/20.0
	assert.InDelta(t, withoutPrefix+0.1, withPrefix, 1e-9)

	// Unrelated names stay low.
	assert.Less(t, Similarity("netflix", "dedeman"), 0.4)
}

func TestSimilarityNeverExceedsOne(t *testing.T) {
	assert.LessOrEqual(t, Similarity("lidl", "lidl "), 1.0)
	assert.LessOrEqual(t, Similarity("a", "ab"), 1.0)
}
