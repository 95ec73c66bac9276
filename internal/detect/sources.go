package detect

import (
	"regexp"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// sourceProfile holds the built-in detection data for one source.
type sourceProfile struct {
	Source     model.Source
	Signatures []string
	DocRegexes []*regexp.Regexp
	Phrases    []string
	Keywords   []string
	// DateRegex matches the date family this source prints in statements.
	DateRegex *regexp.Regexp
	// IBANRegex matches the bank code inside account numbers.
	IBANRegex *regexp.Regexp
}

var dottedDate = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
var slashedDate = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
var dashedDate = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

// sourceProfiles is the seeded detection table. The learning store layers
// adjusted accuracies and synthesized patterns on top of these.
var sourceProfiles = []sourceProfile{
	{
		Source:     model.SourceBT,
		Signatures: []string{"BANCA TRANSILVANIA", "Banca Transilvania", "BT24 Internet Banking"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)extras de cont`),
			regexp.MustCompile(`RO\d{2}BTRL`),
			regexp.MustCompile(`(?i)sold precedent`),
		},
		Phrases:   []string{"extras de cont", "sold precedent", "sold final"},
		Keywords:  []string{"transilvania", "btrl", "bt24", "btpay"},
		DateRegex: dottedDate,
		IBANRegex: regexp.MustCompile(`RO\d{2}BTRL`),
	},
	{
		Source:     model.SourceBCR,
		Signatures: []string{"Banca Comerciala Romana", "Banca Comercială Română", "BCR Extras de cont"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`RO\d{2}RNCB`),
			regexp.MustCompile(`(?i)george`),
			regexp.MustCompile(`(?i)extras de cont`),
		},
		Phrases:   []string{"extras de cont", "george", "rulaj total"},
		Keywords:  []string{"bcr", "rncb", "george", "comerciala"},
		DateRegex: dottedDate,
		IBANRegex: regexp.MustCompile(`RO\d{2}RNCB`),
	},
	{
		Source:     model.SourceING,
		Signatures: []string{"ING Bank N.V.", "ING Home'Bank", "ING Personal"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`RO\d{2}INGB`),
			regexp.MustCompile(`(?i)home'?bank`),
			regexp.MustCompile(`(?i)ing bank`),
		},
		Phrases:   []string{"homebank", "ing bank", "detalii tranzactie"},
		Keywords:  []string{"ing", "ingb", "homebank"},
		DateRegex: slashedDate,
		IBANRegex: regexp.MustCompile(`RO\d{2}INGB`),
	},
	{
		Source:     model.SourceBRD,
		Signatures: []string{"BRD - Groupe Societe Generale", "BRD-Groupe Société Générale", "MyBRD"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`RO\d{2}BRDE`),
			regexp.MustCompile(`(?i)groupe societe generale`),
			regexp.MustCompile(`(?i)mybrd`),
		},
		Phrases:   []string{"societe generale", "mybrd", "extras de cont"},
		Keywords:  []string{"brd", "brde", "mybrd"},
		DateRegex: slashedDate,
		IBANRegex: regexp.MustCompile(`RO\d{2}BRDE`),
	},
	{
		Source:     model.SourceRaiffeisen,
		Signatures: []string{"Raiffeisen Bank", "RAIFFEISEN BANK S.A.", "Smart Mobile"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`RO\d{2}RZBR`),
			regexp.MustCompile(`(?i)raiffeisen`),
		},
		Phrases:   []string{"raiffeisen", "extras de cont", "smart mobile"},
		Keywords:  []string{"raiffeisen", "rzbr"},
		DateRegex: dottedDate,
		IBANRegex: regexp.MustCompile(`RO\d{2}RZBR`),
	},
	{
		Source:     model.SourceRevolut,
		Signatures: []string{"Revolut Bank UAB", "Revolut Ltd", "Revolut Statement"},
		DocRegexes: []*regexp.Regexp{
			regexp.MustCompile(`(?i)revolut`),
			regexp.MustCompile(`(?i)statement period`),
		},
		Phrases:   []string{"revolut", "statement period", "money added"},
		Keywords:  []string{"revolut", "revo"},
		DateRegex: dashedDate,
		IBANRegex: regexp.MustCompile(`(?i)REVO`),
	},
}
