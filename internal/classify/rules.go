package classify

import (
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
)

// CategoryRule is one data-driven classification rule. Rules are data, not
// code: the built-in set can be replaced wholesale from a YAML file.
type CategoryRule struct {
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory,omitempty"`
	Keywords    []string `yaml:"keywords"`
	Regexes     []string `yaml:"regexes,omitempty"`
	// Typical amount range for this category, in statement currency.
	AmountMin float64 `yaml:"amount_min,omitempty"`
	AmountMax float64 `yaml:"amount_max,omitempty"`

	compiled []*regexp.Regexp
}

// Compile prepares the rule's regexes. Invalid patterns are an error at load
// time, not at match time.
func (r *CategoryRule) Compile() error {
	r.compiled = r.compiled[:0]
	for _, raw := range r.Regexes {
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return fmt.Errorf("rule %q: bad regex %q: %w", r.Category, raw, err)
		}
		r.compiled = append(r.compiled, re)
	}
	return nil
}

// LoadRules reads category rules from a YAML file and compiles them.
func LoadRules(path string) ([]CategoryRule, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules []CategoryRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i := range rules {
		if err := rules[i].Compile(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}

// DefaultRules returns the built-in Romanian category rule set, compiled.
func DefaultRules() []CategoryRule {
	rules := []CategoryRule{
		{
			Category:  "Alimente",
			Keywords:  []string{"lidl", "kaufland", "carrefour", "mega image", "profi", "auchan", "penny", "selgros", "metro cash"},
			Regexes:   []string{`\bsupermarket\b`, `\bhipermarket\b`},
			AmountMin: 5, AmountMax: 1500,
		},
		{
			Category:  "Transport",
			Keywords:  []string{"omv", "petrom", "mol", "rompetrol", "lukoil", "uber", "bolt", "stb", "cfr calatori", "metrorex"},
			Regexes:   []string{`\bbenzinarie\b`, `\btaxi\b`},
			AmountMin: 2, AmountMax: 800,
		},
		{
			Category:  "Utilitati",
			Keywords:  []string{"enel", "engie", "eon", "digi", "orange", "vodafone", "telekom", "apa nova", "electrica"},
			Regexes:   []string{`\bfactura\b`, `\babonament\b`},
			AmountMin: 20, AmountMax: 1200,
		},
		{
			Category:  "Restaurant",
			Keywords:  []string{"restaurant", "pizzeria", "kfc", "mcdonalds", "glovo", "tazz", "foodpanda", "starbucks", "bistro"},
			Regexes:   []string{`\bcafe\b`, `\bcoffee\b`},
			AmountMin: 10, AmountMax: 500,
		},
		{
			Category:  "Sanatate",
			Keywords:  []string{"farmacia", "catena", "sensiblu", "helpnet", "dr max", "regina maria", "medlife", "sanador"},
			Regexes:   []string{`\bfarmaci\w+\b`, `\bclinic\w+\b`},
			AmountMin: 10, AmountMax: 2000,
		},
		{
			Category:  "Divertisment",
			Keywords:  []string{"netflix", "spotify", "hbo", "cinema city", "steam", "playstation", "disney"},
			Regexes:   []string{`\bcinema\b`, `\bteatru\b`},
			AmountMin: 10, AmountMax: 300,
		},
		{
			Category:  "Cumparaturi",
			Keywords:  []string{"emag", "altex", "dedeman", "ikea", "decathlon", "zara", "h&m", "leroy merlin", "flanco"},
			Regexes:   []string{`\bmagazin\b`, `\bmall\b`},
			AmountMin: 20, AmountMax: 5000,
		},
		{
			Category:  "Venituri",
			Keywords:  []string{"salariu", "salary", "dividend", "bonus", "incasare", "virament salariu"},
			Regexes:   []string{`\bplata salariu\b`},
			AmountMin: 100, AmountMax: 100000,
		},
	}

	for i := range rules {
		// Built-in regexes are known-good.
		_ = rules[i].Compile()
	}
	return rules
}
