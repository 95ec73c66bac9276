package docproc

import "regexp"

// correction is one deterministic text fix. Corrections run in table order so
// later fixes can rely on earlier ones.
type correction struct {
	re          *regexp.Regexp
	replacement string
}

// correctionTable is the fixed, ordered list of post-extraction fixes:
// OCR character confusions first, then Romanian diacritic restoration,
// then banking vocabulary.
var correctionTable = []correction{
	// OCR confusions in numeric context.
	{regexp.MustCompile(`(\d)O(\d)`), "${1}0${2}"},
	{regexp.MustCompile(`(\d)[lI](\d)`), "${1}1${2}"},
	{regexp.MustCompile(`(\d)S(\d)`), "${1}5${2}"},
	{regexp.MustCompile(`(\d)B(\d)`), "${1}8${2}"},
	{regexp.MustCompile(`O(\d{2,})`), "0${1}"},

	// Cedilla forms to the correct comma-below Romanian letters.
	{regexp.MustCompile(`ş`), "ș"},
	{regexp.MustCompile(`Ş`), "Ș"},
	{regexp.MustCompile(`ţ`), "ț"},
	{regexp.MustCompile(`Ţ`), "Ț"},

	// Frequently de-diacriticized banking words.
	{regexp.MustCompile(`\bplata\b`), "plată"},
	{regexp.MustCompile(`\bPlata\b`), "Plată"},
	{regexp.MustCompile(`\btranzactie\b`), "tranzacție"},
	{regexp.MustCompile(`\bTranzactie\b`), "Tranzacție"},
	{regexp.MustCompile(`\bcumparare\b`), "cumpărare"},
	{regexp.MustCompile(`\bCumparare\b`), "Cumpărare"},

	// Banking vocabulary OCR fixes.
	{regexp.MustCompile(`\bP0S\b`), "POS"},
	{regexp.MustCompile(`\bIBAM\b`), "IBAN"},
	{regexp.MustCompile(`\bR0N\b`), "RON"},
	{regexp.MustCompile(`\bTRANSFEP\b`), "TRANSFER"},
}

// applyCorrections runs the correction table over extracted text in its
// fixed order.
func applyCorrections(text string) string {
	for _, c := range correctionTable {
		text = c.re.ReplaceAllString(text, c.replacement)
	}
	return text
}
