package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

func btDetection() model.DetectionResult {
	return model.DetectionResult{
		Source:     model.SourceBT,
		Method:     "signature",
		Confidence: 0.95,
	}
}

func TestExtractTransactionLine(t *testing.T) {
	e := NewExtractor(nil)
	lines := []string{
		"Extras de cont",
		"05.09.2025 LIDL BUCURESTI -125.40 RON",
		"Sold final",
	}

	txns, err := e.Extract(context.Background(), lines, btDetection())
	require.NoError(t, err)
	require.Len(t, txns, 1)

	txn := txns[0]
	assert.Equal(t, "2025-09-05", txn.Date.Format("2006-01-02"))
	assert.Equal(t, "125.40", txn.Amount.StringFixed(2))
	assert.Equal(t, model.TypeExpense, txn.Type)
	assert.Equal(t, "LIDL BUCURESTI RON", txn.Description)
	assert.Equal(t, model.SourceBT, txn.Source)
	assert.Equal(t, 0.95, txn.SourceConfidence)
	assert.NotEmpty(t, txn.ID)
}

func TestExtractSkipsNonTransactionLines(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name string
		line string
	}{
		{"no date", "LIDL BUCURESTI -125.40 RON"},
		{"no amount", "05.09.2025 Detalii tranzactie"},
		{"zero amount", "05.09.2025 CORECTIE 0.00"},
		{"header", "Sold precedent"},
		{"date only", "05.09.2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := e.Extract(context.Background(), []string{tt.line}, btDetection())
			require.NoError(t, err)
			assert.Empty(t, txns)
		})
	}
}

func TestExtractIncomeLine(t *testing.T) {
	e := NewExtractor(nil)

	txns, err := e.Extract(context.Background(),
		[]string{"01.09.2025 Virament salariu 4.500,00"},
		btDetection())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TypeIncome, txns[0].Type)
	assert.Equal(t, "4500.00", txns[0].Amount.StringFixed(2))
}

func TestExtractUngroupedAmountKeepsMagnitudeAndSign(t *testing.T) {
	// An amount without thousands grouping must match whole, sign included,
	// never from a digit in the middle.
	e := NewExtractor(nil)

	tests := []struct {
		name   string
		line   string
		amount string
		txType model.TransactionType
	}{
		{"ungrouped expense", "05.09.2025 PLATA CHIRIE -1234.56", "1234.56", model.TypeExpense},
		{"ungrouped income", "05.09.2025 INCASARE FACTURA +12345.67", "12345.67", model.TypeIncome},
		{"ungrouped comma decimal", "05.09.2025 TRANSFER -9876,54", "9876.54", model.TypeExpense},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := e.Extract(context.Background(), []string{tt.line}, btDetection())
			require.NoError(t, err)
			require.Len(t, txns, 1)
			assert.Equal(t, tt.amount, txns[0].Amount.StringFixed(2))
			assert.Equal(t, tt.txType, txns[0].Type)
		})
	}
}

func TestExtractUnknownSourceUsesGenericPatterns(t *testing.T) {
	e := NewExtractor(nil)
	detection := model.DetectionResult{Source: model.SourceUnknown, Method: "fuzzy-keyword", Confidence: 0.3}

	lines := []string{
		"05.09.2025 LIDL -10,00",
		"2025-09-06 REVOLUT TOPUP 50.00",
		"07/09/2025 OMV PETROM -200,00",
	}
	txns, err := e.Extract(context.Background(), lines, detection)
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestExtractStableIDs(t *testing.T) {
	e := NewExtractor(nil)
	line := "05.09.2025 LIDL BUCURESTI -125.40 RON"

	first, err := e.Extract(context.Background(), []string{line}, btDetection())
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), []string{line}, btDetection())
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestExtractDescriptionBounded(t *testing.T) {
	e := NewExtractor(nil)
	long := "05.09.2025 " + strings.Repeat("MERCHANT ", 30) + "-10.00"

	txns, err := e.Extract(context.Background(), []string{long}, btDetection())
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.LessOrEqual(t, len(txns[0].Description), model.MaxDescriptionLength)
}

// fixedPrefilter scores lines by a lookup table; unknown lines score zero.
type fixedPrefilter struct {
	scores map[string]float64
}

func (f *fixedPrefilter) Predict(line string) float64 {
	return f.scores[line]
}

func TestPrefilterNarrowsCandidates(t *testing.T) {
	txnLines := []string{
		"05.09.2025 LIDL -10,00",
		"06.09.2025 PROFI -20,00",
		"07.09.2025 OMV -30,00",
	}
	lines := append([]string{
		"Extras de cont",
		"Titular cont",
	}, txnLines...)

	scores := make(map[string]float64)
	for _, l := range txnLines {
		scores[l] = 0.9
	}

	e := NewExtractor(&fixedPrefilter{scores: scores})
	txns, err := e.Extract(context.Background(), lines, btDetection())
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestPrefilterFallsBackWhenTooStrict(t *testing.T) {
	// A prefilter that rejects everything must not suppress extraction.
	lines := []string{
		"Extras de cont",
		"05.09.2025 LIDL -10,00",
		"06.09.2025 PROFI -20,00",
		"07.09.2025 OMV -30,00",
	}

	e := NewExtractor(&fixedPrefilter{scores: map[string]float64{}})
	txns, err := e.Extract(context.Background(), lines, btDetection())
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor(nil)
	_, err := e.Extract(ctx, []string{"05.09.2025 LIDL -10,00"}, btDetection())
	assert.ErrorIs(t, err, context.Canceled)
}
