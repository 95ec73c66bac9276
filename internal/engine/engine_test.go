package engine

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan-nomad/finante-engine/internal/docproc"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/storage"
	"github.com/ioan-nomad/finante-engine/internal/testutil"
)

// stubExtractor satisfies the text extraction contract for documents that
// never reach the PDF path.
type stubExtractor struct{}

func (stubExtractor) Extract(_ context.Context, _ []byte, _ int) (string, bool, error) {
	return "", false, fmt.Errorf("not a pdf")
}

func (stubExtractor) PageCount(_ context.Context, _ []byte) (int, error) {
	return 0, fmt.Errorf("not a pdf")
}

func (stubExtractor) RenderPage(_ context.Context, _ []byte, _ int) (image.Image, error) {
	return nil, fmt.Errorf("not a pdf")
}

func newTestEngine(t *testing.T) (*Engine, *storage.SQLiteStore) {
	t.Helper()

	store := testutil.SetupStore(t)
	eng, err := New(context.Background(), Config{
		Store:     store,
		Extractor: stubExtractor{},
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng, store
}

func statementDoc(text string) *docproc.RawDocument {
	return &docproc.RawDocument{
		Name: "statement.txt",
		MIME: "text/plain",
		Data: []byte(text),
	}
}

const btStatement = "BANCA TRANSILVANIA\nExtras de cont\n05.09.2025 LIDL BUCURESTI -125.40 RON\n"

func TestProcessEndToEnd(t *testing.T) {
	eng, _ := newTestEngine(t)

	txns, err := eng.Process(context.Background(), statementDoc(btStatement), "")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	txn := txns[0]
	assert.Equal(t, model.SourceBT, txn.Source)
	assert.Greater(t, txn.SourceConfidence, 0.8)
	assert.Equal(t, "2025-09-05", txn.Date.Format("2006-01-02"))
	assert.Equal(t, "125.40", txn.Amount.StringFixed(2))
	assert.Equal(t, model.TypeExpense, txn.Type)
	assert.Equal(t, "Alimente", txn.Category)
	assert.GreaterOrEqual(t, txn.Confidence, 0.7)
	assert.False(t, txn.NeedsReview)
	assert.NotEmpty(t, txn.ID)
}

func TestProcessSourceHint(t *testing.T) {
	eng, _ := newTestEngine(t)

	// No signature anywhere; the hint decides.
	doc := statementDoc("05.09.2025 LIDL BUCURESTI -125.40 RON\n")
	txns, err := eng.Process(context.Background(), doc, model.SourceBT)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.SourceBT, txns[0].Source)
	assert.Equal(t, 0.9, txns[0].SourceConfidence)
}

func TestProcessBogusHintIgnored(t *testing.T) {
	eng, _ := newTestEngine(t)

	txns, err := eng.Process(context.Background(), statementDoc(btStatement), model.Source("NOT-A-BANK"))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.SourceBT, txns[0].Source)
}

func TestProcessUnreadableDocument(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Process(context.Background(), &docproc.RawDocument{Name: "empty.txt"}, "")
	assert.Error(t, err)
}

func TestProcessAllKeepsOrder(t *testing.T) {
	eng, _ := newTestEngine(t)

	docs := []*docproc.RawDocument{
		statementDoc("BANCA TRANSILVANIA\n01.09.2025 LIDL -10,00\n"),
		statementDoc("BANCA TRANSILVANIA\n02.09.2025 OMV PETROM -200,00\n03.09.2025 PROFI -20,00\n"),
		statementDoc("BANCA TRANSILVANIA\nSold final\n"),
	}

	results, err := eng.ProcessAll(context.Background(), docs, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Len(t, results[0], 1)
	assert.Len(t, results[1], 2)
	assert.Empty(t, results[2])
}

func TestSubmitFeedbackAppliedAsynchronously(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	txns, err := eng.Process(ctx, statementDoc(btStatement), "")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	category := "Cumparaturi"
	require.NoError(t, eng.SubmitFeedback(txns[0], model.Correction{Category: &category}))

	// Close drains the feedback queue before returning.
	eng.Close()

	record, err := store.GetMerchant(ctx, "lidl bucuresti ron")
	require.NoError(t, err)
	assert.Equal(t, "Cumparaturi", record.Category)
	assert.GreaterOrEqual(t, record.Confidence, 0.6)

	entries, err := store.GetRecentFeedback(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, txns[0].ID, entries[0].TransactionID)
}

func TestCorrectionSticksOnReprocessing(t *testing.T) {
	// After a category correction, re-processing the same document must
	// classify the merchant under the corrected category.
	eng, store := newTestEngine(t)
	ctx := context.Background()

	txns, err := eng.Process(ctx, statementDoc(btStatement), "")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "Alimente", txns[0].Category)

	category := "Cumparaturi"
	require.NoError(t, eng.SubmitFeedback(txns[0], model.Correction{Category: &category}))
	require.Eventually(t, func() bool {
		record, err := store.GetMerchant(ctx, "lidl bucuresti ron")
		return err == nil && record.Category == "Cumparaturi"
	}, 5*time.Second, 50*time.Millisecond)

	again, err := eng.Process(ctx, statementDoc(btStatement), "")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "Cumparaturi", again[0].Category)
	assert.GreaterOrEqual(t, again[0].Confidence, 0.6)
}

func TestSubmitFeedbackEmptyCorrection(t *testing.T) {
	eng, _ := newTestEngine(t)
	err := eng.SubmitFeedback(model.Transaction{ID: "t1"}, model.Correction{})
	assert.Error(t, err)
}

func TestEngineRequiresStoreAndExtractor(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = New(context.Background(), Config{Store: store})
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Process(context.Background(), statementDoc(btStatement), "")
	require.NoError(t, err)

	stats, err := eng.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MerchantCount)
}
