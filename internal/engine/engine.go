// Package engine orchestrates the document-intelligence pipeline: normalize,
// detect, extract, classify, and the asynchronous feedback loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ioan-nomad/finante-engine/internal/classify"
	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/detect"
	"github.com/ioan-nomad/finante-engine/internal/docproc"
	"github.com/ioan-nomad/finante-engine/internal/extract"
	"github.com/ioan-nomad/finante-engine/internal/learn"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// hintConfidence is assigned when the caller names the source explicitly.
const hintConfidence = 0.9

// feedbackQueueSize bounds how many corrections may wait for the worker.
const feedbackQueueSize = 64

// feedbackTimeout bounds one correction's processing time.
const feedbackTimeout = 30 * time.Second

// Config assembles an Engine from its collaborators.
type Config struct {
	Store       service.LearningStore
	Extractor   service.TextExtractionService
	OCR         service.OCREngine
	Rules       []classify.CategoryRule
	Thresholds  detect.Thresholds
	Floors      classify.Floors
	Parallelism int
}

type feedbackJob struct {
	original   model.Transaction
	correction model.Correction
}

// Engine is the public surface of the document-intelligence core.
type Engine struct {
	store      service.LearningStore
	normalizer *docproc.Normalizer
	detector   *detect.Detector
	extractor  *extract.Extractor
	classifier *classify.Classifier
	lineClf    *learn.LineClassifier
	feedback   *learn.FeedbackProcessor

	ocrQueue    *docproc.OCRQueue
	feedbackCh  chan feedbackJob
	wg          sync.WaitGroup
	closeOnce   sync.Once
	parallelism int
}

// New assembles the pipeline. The learning store must already be migrated.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: learning store is required", common.ErrInvalidConfig)
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("%w: text extraction service is required", common.ErrInvalidConfig)
	}
	if cfg.Rules == nil {
		cfg.Rules = classify.DefaultRules()
	}
	if cfg.Thresholds == (detect.Thresholds{}) {
		cfg.Thresholds = detect.DefaultThresholds()
	}
	if cfg.Floors == (classify.Floors{}) {
		cfg.Floors = classify.DefaultFloors()
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}

	lineClf, err := learn.NewLineClassifier(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	setter, ok := cfg.Store.(learn.MerchantCategorySetter)
	if !ok {
		return nil, fmt.Errorf("%w: store does not support category overrides", common.ErrInvalidConfig)
	}

	ocrQueue := docproc.NewOCRQueue(cfg.OCR, 0)

	e := &Engine{
		store:       cfg.Store,
		normalizer:  docproc.NewNormalizer(cfg.Extractor, ocrQueue),
		detector:    detect.NewDetector(cfg.Store, cfg.Thresholds),
		extractor:   extract.NewExtractor(lineClf),
		classifier:  classify.NewClassifier(cfg.Store, cfg.Rules, cfg.Floors),
		lineClf:     lineClf,
		ocrQueue:    ocrQueue,
		feedbackCh:  make(chan feedbackJob, feedbackQueueSize),
		parallelism: cfg.Parallelism,
	}
	e.feedback = learn.NewFeedbackProcessor(cfg.Store, setter, lineClf)

	e.wg.Add(1)
	go e.feedbackWorker()

	return e, nil
}

// Process runs one document through the full pipeline. hint may name the
// source when the caller already knows it; pass model.SourceUnknown or ""
// otherwise. The result is always best-effort and confidence-annotated;
// only unreadable input fails.
func (e *Engine) Process(ctx context.Context, doc *docproc.RawDocument, hint model.Source) ([]model.Transaction, error) {
	start := time.Now()

	normalized, err := e.normalizer.Normalize(ctx, doc)
	if err != nil {
		return nil, err
	}

	detection := e.detect(ctx, normalized.Text, hint)

	transactions, err := e.extractor.Extract(ctx, normalized.Lines(), detection)
	if err != nil {
		return nil, err
	}

	prevCategory := ""
	for i := range transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.classifier.Classify(ctx, &transactions[i], prevCategory)
		if err != nil {
			return nil, err
		}
		classify.Apply(&transactions[i], result)
		prevCategory = result.Category
	}

	duration := time.Since(start)
	e.recordSample(ctx, "process", duration, detection.Confidence)
	slog.Info("document processed",
		"name", doc.Name,
		"source", detection.Source,
		"source_confidence", detection.Confidence,
		"method", normalized.Method,
		"transactions", len(transactions),
		"duration_ms", duration.Milliseconds())

	return transactions, nil
}

// ProcessAll runs documents as independent parallel tasks with bounded
// concurrency. Canceling ctx cancels queued and in-flight tasks; results
// keep input order.
func (e *Engine) ProcessAll(ctx context.Context, docs []*docproc.RawDocument, hint model.Source) ([][]model.Transaction, error) {
	results := make([][]model.Transaction, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i, doc := range docs {
		g.Go(func() error {
			txns, err := e.Process(gctx, doc, hint)
			if err != nil {
				return fmt.Errorf("%s: %w", doc.Name, err)
			}
			results[i] = txns
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SubmitFeedback queues a correction for asynchronous processing. The call
// never blocks on learning work; a full queue is reported as an error so
// the caller can retry.
func (e *Engine) SubmitFeedback(original model.Transaction, correction model.Correction) error {
	if correction.IsEmpty() {
		return fmt.Errorf("correction is empty")
	}

	select {
	case e.feedbackCh <- feedbackJob{original: original, correction: correction}:
		return nil
	default:
		return fmt.Errorf("feedback queue full")
	}
}

// Stats exposes the read-only monitoring surface.
func (e *Engine) Stats(ctx context.Context) (*service.StoreStats, error) {
	return e.store.Stats(ctx)
}

// Close drains the feedback queue and stops the OCR worker. The learning
// store is owned by the caller and stays open.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.feedbackCh)
		e.wg.Wait()
		e.ocrQueue.Close()
	})
}

func (e *Engine) detect(ctx context.Context, text string, hint model.Source) model.DetectionResult {
	if hint != "" && hint != model.SourceUnknown {
		for _, known := range model.KnownSources() {
			if hint == known {
				return model.DetectionResult{
					Source:     hint,
					Method:     "hint",
					Confidence: hintConfidence,
				}
			}
		}
		slog.Warn("ignoring unknown source hint", "hint", hint)
	}
	return e.detector.Detect(ctx, text)
}

// feedbackWorker applies corrections one at a time. Per-key serialization in
// the store keeps these writes from racing in-flight classifications.
func (e *Engine) feedbackWorker() {
	defer e.wg.Done()

	for job := range e.feedbackCh {
		ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
		if err := e.feedback.Apply(ctx, job.original, job.correction); err != nil {
			common.LogError(err, "feedback processing failed", common.Fields{
				"transaction_id": job.original.ID,
			})
		}
		cancel()
	}
}

func (e *Engine) recordSample(ctx context.Context, operation string, duration time.Duration, confidence float64) {
	sample := &model.PerformanceSample{
		Operation:  operation,
		Duration:   duration,
		Confidence: confidence,
	}
	if err := e.store.RecordSample(ctx, sample); err != nil {
		slog.Debug("failed to record engine sample", "error", err)
	}
}
