// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"image"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// LearningStore defines the contract for the persistence layer shared by
// every classifier: source patterns, merchants, the feedback log, classifier
// weights, and performance samples. Upserts are idempotent by key so repeated
// sightings update rather than duplicate records.
type LearningStore interface {
	// Merchant operations. Key: normalized merchant name.
	GetMerchant(ctx context.Context, normalizedName string) (*model.MerchantRecord, error)
	GetMerchantByAlias(ctx context.Context, alias string) (*model.MerchantRecord, error)
	UpsertMerchant(ctx context.Context, merchant *model.MerchantRecord) error
	GetAllMerchants(ctx context.Context) ([]model.MerchantRecord, error)
	GetMerchantsByCategory(ctx context.Context, category string) ([]model.MerchantRecord, error)

	// Source pattern operations. Key: (source, pattern).
	UpsertSourcePattern(ctx context.Context, pattern *model.SourcePattern) error
	GetSourcePatterns(ctx context.Context, source model.Source) ([]model.SourcePattern, error)
	AdjustPatternAccuracy(ctx context.Context, source model.Source, pattern string, delta float64) error

	// Feedback log. Append-only, trimmed to the most recent N entries.
	AppendFeedback(ctx context.Context, entry *model.FeedbackEntry) error
	GetRecentFeedback(ctx context.Context, limit int) ([]model.FeedbackEntry, error)

	// Classifier weights, versioned.
	SaveWeights(ctx context.Context, weights *model.ClassifierWeights) error
	LoadWeights(ctx context.Context) (*model.ClassifierWeights, error)

	// Monitoring.
	RecordSample(ctx context.Context, sample *model.PerformanceSample) error
	Stats(ctx context.Context) (*StoreStats, error)

	// Retention.
	Cleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// TextExtractionService extracts native text from a document, used to probe
// whether OCR is needed at all.
type TextExtractionService interface {
	// Extract returns the text of the given page (1-based). hasText is false
	// when the page carries no extractable text layer.
	Extract(ctx context.Context, data []byte, page int) (text string, hasText bool, err error)
	// PageCount reports the number of pages in the document.
	PageCount(ctx context.Context, data []byte) (int, error)
	// RenderPage rasterizes the given page (1-based) for OCR. Implementations
	// without a rasterizer return an error; the normalizer then degrades to
	// its low-confidence fallback.
	RenderPage(ctx context.Context, data []byte, page int) (image.Image, error)
}

// OCREngine performs page-level optical character recognition. Invoked only
// when native extraction is insufficient.
type OCREngine interface {
	Recognize(ctx context.Context, page image.Image) (text string, confidence float64, err error)
	// Available reports whether the engine can currently serve requests.
	Available() bool
}

// StoreStats is the read-only monitoring surface of the learning store.
type StoreStats struct {
	PerSourceAccuracy map[model.Source]float64
	MerchantCount     int
	FeedbackCount     int
}

// CleanupOptions configures the retention pass.
type CleanupOptions struct {
	// Merchants below MinOccurrences unseen for longer than UnseenWindow
	// are removed.
	MinOccurrences int
	UnseenWindow   time.Duration
	// Feedback log keeps the newest KeepFeedback entries.
	KeepFeedback int
	// Performance samples older than SampleMaxAge are pruned.
	SampleMaxAge time.Duration
}

// DefaultCleanupOptions returns the retention defaults.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MinOccurrences: 2,
		UnseenWindow:   180 * 24 * time.Hour,
		KeepFeedback:   1000,
		SampleMaxAge:   30 * 24 * time.Hour,
	}
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	MerchantsRemoved int
	FeedbackTrimmed  int
	SamplesPruned    int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
