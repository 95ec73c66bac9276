package model

import "time"

// MerchantRecord represents a known counterparty with its learned category.
// NormalizedName is the unique key; repeated sightings update the existing
// record rather than creating duplicates.
type MerchantRecord struct {
	LastSeen       time.Time
	Metadata       map[string]string
	Name           string
	NormalizedName string
	Category       string
	Subcategory    string
	Aliases        []string
	Confidence     float64
	Occurrences    int
}

// HasAlias reports whether the given normalized form is a registered alias.
func (m *MerchantRecord) HasAlias(normalized string) bool {
	for _, a := range m.Aliases {
		if a == normalized {
			return true
		}
	}
	return false
}

// AddAlias registers a new alias if not already present.
func (m *MerchantRecord) AddAlias(normalized string) {
	if normalized == "" || normalized == m.NormalizedName || m.HasAlias(normalized) {
		return
	}
	m.Aliases = append(m.Aliases, normalized)
}
