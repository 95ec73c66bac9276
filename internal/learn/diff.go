package learn

import "strings"

// wordReplacement is one original→corrected token substitution found by the
// word-level diff.
type wordReplacement struct {
	From string
	To   string
}

// wordDiff aligns the two descriptions word by word and reports stable
// substitutions. Only positionally aligned replacements count: insertions
// and deletions carry no reusable correction signal.
func wordDiff(original, corrected string) []wordReplacement {
	origWords := strings.Fields(original)
	corrWords := strings.Fields(corrected)
	if len(origWords) == 0 || len(corrWords) == 0 {
		return nil
	}

	// Trim the common prefix and suffix; whatever is left in equal-length
	// middles is a run of substitutions.
	prefix := 0
	for prefix < len(origWords) && prefix < len(corrWords) &&
		strings.EqualFold(origWords[prefix], corrWords[prefix]) {
		prefix++
	}

	suffix := 0
	for suffix < len(origWords)-prefix && suffix < len(corrWords)-prefix &&
		strings.EqualFold(origWords[len(origWords)-1-suffix], corrWords[len(corrWords)-1-suffix]) {
		suffix++
	}

	midOrig := origWords[prefix : len(origWords)-suffix]
	midCorr := corrWords[prefix : len(corrWords)-suffix]
	if len(midOrig) != len(midCorr) {
		return nil
	}

	var replacements []wordReplacement
	for i := range midOrig {
		if !strings.EqualFold(midOrig[i], midCorr[i]) {
			replacements = append(replacements, wordReplacement{
				From: midOrig[i],
				To:   midCorr[i],
			})
		}
	}
	return replacements
}
