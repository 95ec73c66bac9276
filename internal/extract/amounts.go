package extract

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// ParseAmount normalizes a matched amount substring: thousands separators
// are stripped, the locale decimal mark becomes ".", and the sign selects
// the transaction type. The returned amount is the unsigned magnitude,
// rounded to 2 decimal places.
func ParseAmount(raw string) (decimal.Decimal, model.TransactionType, error) {
	s := strings.TrimSpace(raw)

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	s = strings.ReplaceAll(s, " ", "")

	s, err := canonicalDecimal(s)
	if err != nil {
		return decimal.Zero, "", err
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("unparseable amount %q: %w", raw, err)
	}
	amount = amount.Round(2)

	txType := model.TypeIncome
	if negative {
		txType = model.TypeExpense
	}
	return amount.Abs(), txType, nil
}

// canonicalDecimal converts "1.234,56", "1,234.56", and "125,40" alike to
// "1234.56" form. The last separator followed by exactly two digits is the
// decimal mark; every other separator groups thousands.
func canonicalDecimal(s string) (string, error) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	decimalIdx := lastDot
	if lastComma > decimalIdx {
		decimalIdx = lastComma
	}

	if decimalIdx < 0 {
		// No separator at all: an integer amount.
		return s, nil
	}

	if len(s)-decimalIdx-1 != 2 {
		// Trailing group of three: a thousands separator, not decimals.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", "")
		return s, nil
	}

	intPart := s[:decimalIdx]
	fracPart := s[decimalIdx+1:]
	intPart = strings.ReplaceAll(intPart, ".", "")
	intPart = strings.ReplaceAll(intPart, ",", "")
	if intPart == "" {
		intPart = "0"
	}

	return intPart + "." + fracPart, nil
}
