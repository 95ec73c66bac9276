package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		txType   model.TransactionType
	}{
		{"comma decimal", "125,40", "125.40", model.TypeIncome},
		{"dot decimal", "125.40", "125.40", model.TypeIncome},
		{"negative is expense", "-125.40", "125.40", model.TypeExpense},
		{"explicit plus", "+2500.00", "2500.00", model.TypeIncome},
		{"ro thousands", "1.234,56", "1234.56", model.TypeIncome},
		{"en thousands", "1,234.56", "1234.56", model.TypeIncome},
		{"space thousands", "1 234,56", "1234.56", model.TypeIncome},
		{"plain integer", "300", "300.00", model.TypeIncome},
		{"negative integer", "-300", "300.00", model.TypeExpense},
		{"grouped no decimals", "1.234", "1234.00", model.TypeIncome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, txType, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, amount.StringFixed(2))
			assert.Equal(t, tt.txType, txType)
		})
	}
}

func TestParseAmountAlwaysNonNegative(t *testing.T) {
	amount, _, err := ParseAmount("-1.234,56")
	require.NoError(t, err)
	assert.False(t, amount.IsNegative())
	assert.Equal(t, "1234.56", amount.StringFixed(2))
}

func TestParseAmountInvalid(t *testing.T) {
	for _, input := range []string{"", "abc", "--", "12,34,ab"} {
		_, _, err := ParseAmount(input)
		assert.Error(t, err, "input %q", input)
	}
}
