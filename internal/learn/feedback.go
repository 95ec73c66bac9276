package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
	"github.com/ioan-nomad/finante-engine/internal/textutil"
)

// correctedConfidence is assigned to a merchant's category after a user
// correction. The contract requires at least 0.6 after one correction; a
// direct user statement warrants more than the rule-match floor.
const correctedConfidence = 0.85

// oldCategoryDecay halves the standing of the category the user corrected
// away from.
const oldCategoryDecay = 0.5

// patternAccuracyDelta is the per-feedback adjustment applied to the
// detected source's stored patterns.
const patternAccuracyDelta = 0.02

// MerchantCategorySetter is the store-side override used when a correction
// must move a merchant to a new category, bypassing the blended MAX update.
type MerchantCategorySetter interface {
	SetMerchantCategory(ctx context.Context, normalizedName, category, subcategory string, confidence float64) error
}

// FeedbackProcessor ingests user corrections: it adjusts pattern and
// merchant confidence, synthesizes description-fix patterns, trains the line
// classifier one step, and appends an immutable feedback entry.
type FeedbackProcessor struct {
	store      service.LearningStore
	setter     MerchantCategorySetter
	classifier *LineClassifier
}

// NewFeedbackProcessor wires the processor to the shared learning store.
// setter is typically the same storage instance.
func NewFeedbackProcessor(store service.LearningStore, setter MerchantCategorySetter, classifier *LineClassifier) *FeedbackProcessor {
	return &FeedbackProcessor{store: store, setter: setter, classifier: classifier}
}

// Apply processes one correction. The feedback entry is appended regardless
// of how much of the update succeeded; Applied records whether every step
// went through.
func (p *FeedbackProcessor) Apply(ctx context.Context, original model.Transaction, correction model.Correction) error {
	applied := true

	if correction.Description != nil {
		if err := p.applyDescriptionCorrection(ctx, original, *correction.Description); err != nil {
			slog.Warn("description correction failed", "error", err)
			applied = false
		}
	}

	if correction.Category != nil && *correction.Category != original.Category {
		if err := p.applyCategoryCorrection(ctx, original, correction); err != nil {
			slog.Warn("category correction failed", "error", err)
			applied = false
		}
	}

	if err := p.adjustSourceAccuracy(ctx, original, correction); err != nil {
		slog.Debug("source accuracy adjustment skipped", "error", err)
	}

	if err := p.trainStep(ctx, original, correction); err != nil {
		slog.Warn("online training step failed", "error", err)
		applied = false
	}

	entry := &model.FeedbackEntry{
		ID:            uuid.NewString(),
		TransactionID: original.ID,
		Original:      original,
		Correction:    correction,
		CreatedAt:     time.Now(),
		Applied:       applied,
	}
	if err := p.store.AppendFeedback(ctx, entry); err != nil {
		return fmt.Errorf("failed to append feedback entry: %w", err)
	}

	slog.Info("feedback processed",
		"transaction_id", original.ID,
		"applied", applied)
	return nil
}

// applyDescriptionCorrection diffs the two descriptions word by word and
// stores each stable substitution as a field-regex correction pattern for
// the detected source.
func (p *FeedbackProcessor) applyDescriptionCorrection(ctx context.Context, original model.Transaction, corrected string) error {
	replacements := wordDiff(original.Description, corrected)
	if len(replacements) == 0 {
		return nil
	}

	source := original.Source
	if source == "" {
		source = model.SourceUnknown
	}

	for _, r := range replacements {
		// Pattern text encodes match and replacement; the normalizer's
		// correction layer consumes these as "from=>to".
		pattern := &model.SourcePattern{
			Source:   source,
			Pattern:  regexp.QuoteMeta(r.From) + "=>" + r.To,
			Kind:     model.KindFieldRegex,
			Accuracy: 0.5,
			UseCount: 1,
		}
		if err := p.store.UpsertSourcePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to store correction pattern: %w", err)
		}
	}
	return nil
}

// applyCategoryCorrection moves the merchant to the corrected category. The
// old category's confidence is decayed, never raised; the new category gets
// at least the post-correction minimum.
func (p *FeedbackProcessor) applyCategoryCorrection(ctx context.Context, original model.Transaction, correction model.Correction) error {
	normalized := textutil.NormalizeMerchant(original.Description)
	if normalized == "" {
		return fmt.Errorf("correction for unnormalizable description %q", original.Description)
	}

	newCategory := *correction.Category

	record, err := p.store.GetMerchant(ctx, normalized)
	if errors.Is(err, common.ErrNotFound) {
		record = &model.MerchantRecord{
			Name:           original.Description,
			NormalizedName: normalized,
			Category:       newCategory,
			Confidence:     correctedConfidence,
			Occurrences:    1,
			LastSeen:       time.Now(),
		}
		record.Metadata = map[string]string{
			categoryConfidenceKey(newCategory): formatConfidence(correctedConfidence),
		}
		return p.store.UpsertMerchant(ctx, record)
	}
	if err != nil {
		return fmt.Errorf("failed to load merchant for correction: %w", err)
	}

	if record.Metadata == nil {
		record.Metadata = make(map[string]string)
	}

	oldCategory := record.Category
	oldConf := record.Confidence
	if stored, ok := record.Metadata[categoryConfidenceKey(oldCategory)]; ok {
		if v, err := strconv.ParseFloat(stored, 64); err == nil {
			oldConf = v
		}
	}
	record.Metadata[categoryConfidenceKey(oldCategory)] = formatConfidence(oldConf * oldCategoryDecay)
	record.Metadata[categoryConfidenceKey(newCategory)] = formatConfidence(correctedConfidence)

	subcategory := record.Subcategory
	if oldCategory != newCategory {
		subcategory = ""
	}

	if err := p.setter.SetMerchantCategory(ctx, normalized, newCategory, subcategory, correctedConfidence); err != nil {
		return fmt.Errorf("failed to move merchant category: %w", err)
	}

	// Persist the per-category confidence ledger alongside the move.
	record.Category = newCategory
	record.Subcategory = subcategory
	record.Confidence = correctedConfidence
	if err := p.store.UpsertMerchant(ctx, record); err != nil {
		return fmt.Errorf("failed to persist category ledger: %w", err)
	}
	return nil
}

// adjustSourceAccuracy nudges the detected source's stored patterns: a
// correction that changed fields means extraction was imperfect.
func (p *FeedbackProcessor) adjustSourceAccuracy(ctx context.Context, original model.Transaction, correction model.Correction) error {
	if original.Source == "" || original.Source == model.SourceUnknown {
		return nil
	}

	delta := patternAccuracyDelta
	if !correction.IsEmpty() {
		delta = -patternAccuracyDelta
	}

	patterns, err := p.store.GetSourcePatterns(ctx, original.Source)
	if err != nil {
		return err
	}
	for _, pattern := range patterns {
		if err := p.store.AdjustPatternAccuracy(ctx, pattern.Source, pattern.Pattern, delta); err != nil {
			return err
		}
	}
	return nil
}

// trainStep feeds the corrected line back as a positive labeled sample.
func (p *FeedbackProcessor) trainStep(ctx context.Context, original model.Transaction, correction model.Correction) error {
	if p.classifier == nil {
		return nil
	}

	line := original.Description
	if correction.Description != nil {
		line = *correction.Description
	}
	return p.classifier.Train(ctx, line, true)
}

func categoryConfidenceKey(category string) string {
	return "conf." + category
}

func formatConfidence(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
