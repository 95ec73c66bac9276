// Package model defines the core domain models used throughout the application.
package model

import "time"

// Source identifies the institution whose statement layout is being parsed.
type Source string

// Known statement sources.
const (
	SourceBT         Source = "BT"
	SourceBCR        Source = "BCR"
	SourceING        Source = "ING"
	SourceBRD        Source = "BRD"
	SourceRaiffeisen Source = "RAIFFEISEN"
	SourceRevolut    Source = "REVOLUT"
	SourceUnknown    Source = "UNKNOWN"
)

// KnownSources lists every source with dedicated detection data.
func KnownSources() []Source {
	return []Source{SourceBT, SourceBCR, SourceING, SourceBRD, SourceRaiffeisen, SourceRevolut}
}

// PatternKind categorizes a stored source pattern.
type PatternKind string

const (
	// KindSignature is a literal substring strongly indicative of one source.
	KindSignature PatternKind = "signature"
	// KindDocumentRegex matches structural features of a whole document.
	KindDocumentRegex PatternKind = "document-regex"
	// KindFieldRegex matches a single field within a statement line.
	KindFieldRegex PatternKind = "field-regex"
)

// SourcePattern is a learned or seeded pattern tied to one source.
// Uniqueness key: (Source, Pattern).
type SourcePattern struct {
	LastUsed time.Time
	Source   Source
	Pattern  string
	Kind     PatternKind
	Accuracy float64
	UseCount int
}
