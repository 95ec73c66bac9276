// Package classify resolves each transaction's counterparty and category via
// a five-stage confidence cascade backed by the learning store.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
	"github.com/ioan-nomad/finante-engine/internal/textutil"
)

// Uncategorized is assigned when every stage comes back empty-handed.
const Uncategorized = "Uncategorized"

// Floors holds the per-stage confidence floors of the cascade. Empirically
// fixed constants; override via config rather than re-deriving.
type Floors struct {
	Exact        float64
	Alias        float64
	Fuzzy        float64
	CategoryRule float64
}

// DefaultFloors returns the standard cascade floors.
func DefaultFloors() Floors {
	return Floors{
		Exact:        0.8,
		Alias:        0.8,
		Fuzzy:        0.7,
		CategoryRule: 0.6,
	}
}

// reviewThreshold marks low-confidence results for manual review.
const reviewThreshold = 0.5

// stageOutcome carries a stage's result plus the store update to apply if
// the stage wins. Store writes happen only for the winning stage so a
// repeated classification with no intervening feedback stays idempotent.
type stageOutcome struct {
	record *model.MerchantRecord
	result model.ClassificationResult
	isNew  bool
	ok     bool
}

// Classifier enriches transactions with merchant and category information.
type Classifier struct {
	store  service.LearningStore
	rules  []CategoryRule
	floors Floors
}

// NewClassifier creates a Classifier over the given rule table.
func NewClassifier(store service.LearningStore, rules []CategoryRule, floors Floors) *Classifier {
	return &Classifier{store: store, rules: rules, floors: floors}
}

// Classify resolves the transaction's category. Known merchants get their
// occurrence count bumped; a rule or heuristic hit on a brand-new name
// creates a merchant record. prevCategory is the category of the previous
// transaction in the same session, used for the context bonus; pass ""
// when there is none.
func (c *Classifier) Classify(ctx context.Context, txn *model.Transaction, prevCategory string) (model.ClassificationResult, error) {
	normalized := textutil.NormalizeMerchant(txn.Description)

	type stage struct {
		run   func(context.Context, *model.Transaction, string, string) (stageOutcome, error)
		floor float64
	}

	stages := []stage{
		{c.exactLookup, c.floors.Exact},
		{c.aliasLookup, c.floors.Alias},
		{c.fuzzyLookup, c.floors.Fuzzy},
		{c.ruleMatch, c.floors.CategoryRule},
	}

	if normalized != "" {
		for _, s := range stages {
			start := time.Now()
			outcome, err := s.run(ctx, txn, normalized, prevCategory)
			duration := time.Since(start)
			if err != nil {
				return model.ClassificationResult{}, err
			}

			common.LogStage("classify", outcome.result.Method, duration, outcome.result.Confidence)
			c.recordSample(ctx, "classify."+outcome.result.Method, duration, outcome.result.Confidence)

			if !outcome.ok || outcome.result.Confidence < s.floor {
				continue
			}

			if err := c.commit(ctx, outcome); err != nil {
				return model.ClassificationResult{}, err
			}
			return outcome.result, nil
		}
	}

	return c.fallbackResult(ctx, txn, normalized)
}

// Apply writes a classification result onto the transaction in place.
func Apply(txn *model.Transaction, result model.ClassificationResult) {
	txn.Category = result.Category
	txn.Subcategory = result.Subcategory
	txn.Confidence = result.Confidence
	txn.NeedsReview = result.Category == Uncategorized || result.Confidence < reviewThreshold
}

// exactLookup finds the merchant by its normalized name.
func (c *Classifier) exactLookup(ctx context.Context, _ *model.Transaction, normalized, _ string) (stageOutcome, error) {
	record, err := c.store.GetMerchant(ctx, normalized)
	if errors.Is(err, common.ErrNotFound) {
		return stageOutcome{result: model.ClassificationResult{Method: "exact"}}, nil
	}
	if err != nil {
		return stageOutcome{}, fmt.Errorf("exact lookup failed: %w", err)
	}

	return stageOutcome{
		ok:     true,
		record: record,
		result: model.ClassificationResult{
			Merchant:    record.Name,
			Category:    record.Category,
			Subcategory: record.Subcategory,
			Method:      "exact",
			Confidence:  record.Confidence,
		},
	}, nil
}

// aliasLookup resolves the description through the alias network.
func (c *Classifier) aliasLookup(ctx context.Context, _ *model.Transaction, normalized, _ string) (stageOutcome, error) {
	record, err := c.store.GetMerchantByAlias(ctx, normalized)
	if errors.Is(err, common.ErrNotFound) {
		return stageOutcome{result: model.ClassificationResult{Method: "alias"}}, nil
	}
	if err != nil {
		return stageOutcome{}, fmt.Errorf("alias lookup failed: %w", err)
	}

	return stageOutcome{
		ok:     true,
		record: record,
		result: model.ClassificationResult{
			Merchant:    record.Name,
			Category:    record.Category,
			Subcategory: record.Subcategory,
			Method:      "alias",
			Confidence:  record.Confidence,
		},
	}, nil
}

// fuzzyLookup scores edit-distance similarity against every known merchant
// name and alias; the best match above the floor wins and the new spelling
// is registered as an alias of the matched merchant.
func (c *Classifier) fuzzyLookup(ctx context.Context, _ *model.Transaction, normalized, _ string) (stageOutcome, error) {
	merchants, err := c.store.GetAllMerchants(ctx)
	if err != nil {
		return stageOutcome{}, fmt.Errorf("fuzzy lookup failed: %w", err)
	}

	var best *model.MerchantRecord
	bestSim := 0.0
	for i := range merchants {
		m := &merchants[i]
		sim := textutil.Similarity(normalized, m.NormalizedName)
		for _, alias := range m.Aliases {
			if s := textutil.Similarity(normalized, alias); s > sim {
				sim = s
			}
		}
		if sim > bestSim {
			bestSim = sim
			best = m
		}
	}

	if best == nil || bestSim < c.floors.Fuzzy {
		return stageOutcome{result: model.ClassificationResult{Method: "fuzzy"}}, nil
	}

	record := *best
	record.AddAlias(normalized)

	return stageOutcome{
		ok:     true,
		record: &record,
		result: model.ClassificationResult{
			Merchant:    record.Name,
			Category:    record.Category,
			Subcategory: record.Subcategory,
			Method:      "fuzzy",
			Confidence:  bestSim * best.Confidence,
		},
	}, nil
}

// ruleMatch scores the data-driven category rules: keyword and regex hits,
// subcategory hits, a context bonus when the previous transaction shared
// the category, and a bonus when the amount falls in the category's typical
// range. A winning rule on an unseen name creates the merchant record.
func (c *Classifier) ruleMatch(_ context.Context, txn *model.Transaction, _ string, prevCategory string) (stageOutcome, error) {
	lower := strings.ToLower(textutil.FoldDiacritics(txn.Description))
	amount := txn.Amount.InexactFloat64()

	var bestRule *CategoryRule
	bestScore := 0.0
	for i := range c.rules {
		rule := &c.rules[i]
		score := scoreRule(rule, lower, amount, prevCategory)
		if score > bestScore {
			bestScore = score
			bestRule = rule
		}
	}

	if bestRule == nil || bestScore < c.floors.CategoryRule {
		return stageOutcome{result: model.ClassificationResult{Method: "category-rule"}}, nil
	}

	return stageOutcome{
		ok:    true,
		isNew: true,
		result: model.ClassificationResult{
			Merchant:    merchantDisplayName(txn.Description),
			Category:    bestRule.Category,
			Subcategory: bestRule.Subcategory,
			Method:      "category-rule",
			Confidence:  bestScore,
			NewMerchant: true,
		},
	}, nil
}

func scoreRule(rule *CategoryRule, lower string, amount float64, prevCategory string) float64 {
	hits := 0
	for _, kw := range rule.Keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	for _, re := range rule.compiled {
		if re.MatchString(lower) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}

	score := 0.6 + 0.05*float64(hits-1)
	if score > 0.75 {
		score = 0.75
	}

	if rule.Subcategory != "" && strings.Contains(lower, strings.ToLower(rule.Subcategory)) {
		score += 0.05
	}
	if prevCategory != "" && prevCategory == rule.Category {
		score += 0.1
	}
	if rule.AmountMax > 0 && amount >= rule.AmountMin && amount <= rule.AmountMax {
		score += 0.1
	}

	if score > 0.95 {
		score = 0.95
	}
	return score
}

// fallbackResult is the stage-5 heuristic decision procedure over simple
// lexical features, used only when nothing else matched.
func (c *Classifier) fallbackResult(ctx context.Context, txn *model.Transaction, normalized string) (model.ClassificationResult, error) {
	start := time.Now()
	result := heuristicClassify(txn)
	duration := time.Since(start)

	common.LogStage("classify", result.Method, duration, result.Confidence)
	c.recordSample(ctx, "classify."+result.Method, duration, result.Confidence)

	if normalized != "" && result.Category != Uncategorized {
		outcome := stageOutcome{ok: true, isNew: true, result: result}
		outcome.result.NewMerchant = true
		if err := c.commit(ctx, outcome); err != nil {
			return model.ClassificationResult{}, err
		}
		result.NewMerchant = true
	}
	return result, nil
}

// commit applies the winning stage's store update: bump an existing record,
// or create one for a brand-new name.
func (c *Classifier) commit(ctx context.Context, outcome stageOutcome) error {
	if outcome.isNew {
		normalized := textutil.NormalizeMerchant(outcome.result.Merchant)
		if normalized == "" {
			return nil
		}
		record := &model.MerchantRecord{
			Name:           outcome.result.Merchant,
			NormalizedName: normalized,
			Category:       outcome.result.Category,
			Subcategory:    outcome.result.Subcategory,
			Confidence:     outcome.result.Confidence,
			Occurrences:    1,
			LastSeen:       time.Now(),
		}
		if err := c.store.UpsertMerchant(ctx, record); err != nil {
			return fmt.Errorf("failed to create merchant %q: %w", normalized, err)
		}
		return nil
	}

	record := outcome.record
	record.Occurrences++
	record.LastSeen = time.Now()
	if err := c.store.UpsertMerchant(ctx, record); err != nil {
		return fmt.Errorf("failed to update merchant %q: %w", record.NormalizedName, err)
	}
	return nil
}

func merchantDisplayName(description string) string {
	fields := strings.Fields(description)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func (c *Classifier) recordSample(ctx context.Context, operation string, duration time.Duration, confidence float64) {
	sample := &model.PerformanceSample{
		Operation:  operation,
		Duration:   duration,
		Confidence: confidence,
	}
	if err := c.store.RecordSample(ctx, sample); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("failed to record classification sample", "error", err)
	}
}
