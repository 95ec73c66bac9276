package extract

import (
	"regexp"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// LinePatterns holds the field regexes applied to each statement line.
// Date, amount, and description are matched independently rather than as a
// single combined line regex; a line becomes a candidate only when both date
// and amount match.
type LinePatterns struct {
	Date        *regexp.Regexp
	Amount      *regexp.Regexp
	Description *regexp.Regexp
}

var (
	dottedDateRe  = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`)
	slashedDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	isoDateRe     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	genericDateRe = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)

	// Amounts require an explicit 2-digit decimal part so years and account
	// numbers never match. The left edge is anchored to start-of-text or
	// whitespace so an ungrouped integer part like 1234.56 matches whole,
	// sign included, instead of from the middle.
	amountRe = regexp.MustCompile(`(?:^|\s)[-+]?(?:\d{1,3}(?:[.,\s]\d{3})+|\d+)[.,]\d{2}\b`)

	descriptionRe = regexp.MustCompile(`\S`)
)

// sourcePatterns maps each source to its field patterns.
var sourcePatterns = map[model.Source]LinePatterns{
	model.SourceBT:         {Date: dottedDateRe, Amount: amountRe, Description: descriptionRe},
	model.SourceBCR:        {Date: dottedDateRe, Amount: amountRe, Description: descriptionRe},
	model.SourceING:        {Date: slashedDateRe, Amount: amountRe, Description: descriptionRe},
	model.SourceBRD:        {Date: slashedDateRe, Amount: amountRe, Description: descriptionRe},
	model.SourceRaiffeisen: {Date: dottedDateRe, Amount: amountRe, Description: descriptionRe},
	model.SourceRevolut:    {Date: isoDateRe, Amount: amountRe, Description: descriptionRe},
}

// genericPatterns serve UNKNOWN sources so extraction never blocks on
// detection.
var genericPatterns = LinePatterns{
	Date:        genericDateRe,
	Amount:      amountRe,
	Description: descriptionRe,
}

// PatternsFor returns the line patterns for a source, falling back to the
// generic set.
func PatternsFor(source model.Source) LinePatterns {
	if p, ok := sourcePatterns[source]; ok {
		return p
	}
	return genericPatterns
}
