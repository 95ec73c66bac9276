package learn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/storage"
	"github.com/ioan-nomad/finante-engine/internal/testutil"
)

func newTestProcessor(t *testing.T) (*FeedbackProcessor, *storage.SQLiteStore) {
	t.Helper()

	store := testutil.SetupStore(t)
	classifier, err := NewLineClassifier(context.Background(), store)
	require.NoError(t, err)
	return NewFeedbackProcessor(store, store, classifier), store
}

func originalTxn(description, category string) model.Transaction {
	return model.Transaction{
		ID:          "txn-1",
		Description: description,
		Category:    category,
		Source:      model.SourceBT,
	}
}

func TestApplyCategoryCorrectionKnownMerchant(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantRecord{
		Name:           "GLOVO BUCURESTI",
		NormalizedName: "glovo bucuresti",
		Category:       "Cumparaturi",
		Subcategory:    "Online",
		Confidence:     0.7,
		Occurrences:    2,
		LastSeen:       time.Now(),
	}))

	newCategory := "Restaurant"
	require.NoError(t, p.Apply(ctx,
		originalTxn("GLOVO BUCURESTI", "Cumparaturi"),
		model.Correction{Category: &newCategory}))

	record, err := store.GetMerchant(ctx, "glovo bucuresti")
	require.NoError(t, err)

	// The corrected category takes over with enough confidence that the
	// exact-match stage honors it on the next classification.
	assert.Equal(t, "Restaurant", record.Category)
	assert.GreaterOrEqual(t, record.Confidence, 0.6)
	assert.Empty(t, record.Subcategory)

	// The old category's standing is decayed, never raised.
	assert.Equal(t, "0.3500", record.Metadata["conf.Cumparaturi"])
	assert.Equal(t, "0.8500", record.Metadata["conf.Restaurant"])
}

func TestApplyCategoryCorrectionUnknownMerchantCreatesRecord(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	category := "Sanatate"
	require.NoError(t, p.Apply(ctx,
		originalTxn("FARMACIA TEI", "Uncategorized"),
		model.Correction{Category: &category}))

	record, err := store.GetMerchant(ctx, "farmacia tei")
	require.NoError(t, err)
	assert.Equal(t, "Sanatate", record.Category)
	assert.GreaterOrEqual(t, record.Confidence, 0.6)
}

func TestApplyDescriptionCorrectionStoresPattern(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	corrected := "Plata POS LIDL"
	require.NoError(t, p.Apply(ctx,
		originalTxn("Plata P0S LIDL", "Alimente"),
		model.Correction{Description: &corrected}))

	patterns, err := store.GetSourcePatterns(ctx, model.SourceBT)
	require.NoError(t, err)

	var found bool
	for _, pat := range patterns {
		if pat.Kind == model.KindFieldRegex && pat.Pattern == `P0S=>POS` {
			found = true
		}
	}
	assert.True(t, found, "expected a stored P0S=>POS correction pattern, got %v", patterns)
}

func TestApplyAppendsFeedbackEntry(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	category := "Transport"
	require.NoError(t, p.Apply(ctx,
		originalTxn("OMV PETROM", "Uncategorized"),
		model.Correction{Category: &category}))

	entries, err := store.GetRecentFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "txn-1", entries[0].TransactionID)
	assert.True(t, entries[0].Applied)
	require.NotNil(t, entries[0].Correction.Category)
	assert.Equal(t, "Transport", *entries[0].Correction.Category)
}

func TestApplyLowersSourcePatternAccuracy(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertSourcePattern(ctx, &model.SourcePattern{
		Source:   model.SourceBT,
		Pattern:  "extras de cont",
		Kind:     model.KindDocumentRegex,
		Accuracy: 0.8,
	}))

	category := "Alimente"
	require.NoError(t, p.Apply(ctx,
		originalTxn("LIDL", "Uncategorized"),
		model.Correction{Category: &category}))

	patterns, err := store.GetSourcePatterns(ctx, model.SourceBT)
	require.NoError(t, err)
	require.NotEmpty(t, patterns)
	assert.InDelta(t, 0.78, patterns[0].Accuracy, 1e-9)
}

func TestApplyTrainsAndPersistsWeights(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	category := "Alimente"
	require.NoError(t, p.Apply(ctx,
		originalTxn("05.09.2025 LIDL -125,40", "Uncategorized"),
		model.Correction{Category: &category}))

	weights, err := store.LoadWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, FeatureCount, weights.InputSize)
	assert.Equal(t, HiddenSize, weights.HiddenSize)
	assert.Greater(t, weights.Version, int64(0))
}

func TestApplyConcurrentCorrectionsConverge(t *testing.T) {
	// Two users correct the same merchant simultaneously. Writes serialize
	// per key: afterwards there is exactly one record carrying one of the two
	// categories at the post-correction confidence.
	p, store := newTestProcessor(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertMerchant(ctx, &model.MerchantRecord{
		Name:           "DEDEMAN",
		NormalizedName: "dedeman",
		Category:       "Uncategorized",
		Confidence:     0.2,
		Occurrences:    1,
		LastSeen:       time.Now(),
	}))

	categories := []string{"Cumparaturi", "Utilitati"}
	var wg sync.WaitGroup
	for i := range categories {
		wg.Add(1)
		go func(category string) {
			defer wg.Done()
			original := originalTxn("DEDEMAN", "Uncategorized")
			original.ID = "txn-" + category
			assert.NoError(t, p.Apply(ctx, original, model.Correction{Category: &category}))
		}(categories[i])
	}
	wg.Wait()

	all, err := store.GetAllMerchants(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	record := all[0]
	assert.Contains(t, categories, record.Category)
	assert.GreaterOrEqual(t, record.Confidence, 0.6)

	entries, err := store.GetRecentFeedback(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLineClassifierPersistsAcrossRestart(t *testing.T) {
	store := testutil.SetupStore(t)
	ctx := context.Background()

	first, err := NewLineClassifier(ctx, store)
	require.NoError(t, err)

	line := "05.09.2025 Plata POS LIDL -125,40 RON"
	for i := 0; i < 20; i++ {
		require.NoError(t, first.Train(ctx, line, true))
	}
	trained := first.Predict(line)

	second, err := NewLineClassifier(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, trained, second.Predict(line))

	fresh := newNetwork()
	freshOut, _ := fresh.forward(Features(line))
	assert.NotEqual(t, freshOut, trained)
}
