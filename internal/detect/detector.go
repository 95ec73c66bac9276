// Package detect identifies which institution's format a statement follows.
package detect

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
	"github.com/ioan-nomad/finante-engine/internal/textutil"
)

// Thresholds holds the confidence floors of the detection cascade. The
// values are empirically fixed constants carried over from production use;
// override via config rather than re-deriving.
type Thresholds struct {
	Signature       float64
	DocumentPattern float64
	Heuristic       float64
}

// DefaultThresholds returns the standard cascade thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Signature:       0.8,
		DocumentPattern: 0.6,
		Heuristic:       0.5,
	}
}

// headFraction is the leading portion of the text that earns signatures a
// positional bonus.
const headFraction = 0.1

// defaultPatternAccuracy is assumed for seeded patterns with no stored
// accuracy yet.
const defaultPatternAccuracy = 0.8

// Detector runs the four-stage source detection cascade.
type Detector struct {
	store      service.LearningStore
	thresholds Thresholds
}

// NewDetector creates a Detector backed by the given learning store.
func NewDetector(store service.LearningStore, thresholds Thresholds) *Detector {
	return &Detector{store: store, thresholds: thresholds}
}

// Detect identifies the statement's source. Each stage short-circuits when
// its own threshold is met; the final fuzzy stage always produces a best
// guess, possibly UNKNOWN. Detection never fails: extraction proceeds with
// generic patterns when the source stays unknown.
func (d *Detector) Detect(ctx context.Context, text string) model.DetectionResult {
	type stage struct {
		run       func(context.Context, string) model.DetectionResult
		threshold float64
	}

	stages := []stage{
		{d.signatureMatch, d.thresholds.Signature},
		{d.documentPatternMatch, d.thresholds.DocumentPattern},
		{d.heuristicMatch, d.thresholds.Heuristic},
		{d.fuzzyKeywordMatch, 0},
	}

	var last model.DetectionResult
	for _, s := range stages {
		start := time.Now()
		last = s.run(ctx, text)
		duration := time.Since(start)

		common.LogStage("detect", last.Method, duration, last.Confidence)
		d.recordSample(ctx, "detect."+last.Method, duration, last.Confidence)

		if s.threshold > 0 && last.Confidence >= s.threshold {
			return last
		}
	}

	// Nothing cleared its threshold; return the fuzzy best guess.
	return last
}

// signatureMatch scores literal known substrings per source, weighted by
// signature length relative to text size plus a bonus for appearing in the
// first 10% of the text.
func (d *Detector) signatureMatch(_ context.Context, text string) model.DetectionResult {
	best := model.DetectionResult{Source: model.SourceUnknown, Method: "signature"}
	headLen := int(float64(len(text)) * headFraction)
	lower := strings.ToLower(text)

	for _, profile := range sourceProfiles {
		for _, sig := range profile.Signatures {
			idx := strings.Index(lower, strings.ToLower(sig))
			if idx < 0 {
				continue
			}

			confidence := 0.7
			lengthWeight := float64(len(sig)) / float64(len(text)) * 2
			if lengthWeight > 0.1 {
				lengthWeight = 0.1
			}
			confidence += lengthWeight
			if idx <= headLen {
				confidence += 0.15
			}
			if confidence > 0.99 {
				confidence = 0.99
			}

			if confidence > best.Confidence {
				best.Source = profile.Source
				best.Confidence = confidence
			}
		}
	}

	return best
}

// documentPatternMatch scores the fraction of each source's known regexes
// that match, scaled by the source's stored baseline accuracy.
func (d *Detector) documentPatternMatch(ctx context.Context, text string) model.DetectionResult {
	best := model.DetectionResult{Source: model.SourceUnknown, Method: "document-pattern"}

	for _, profile := range sourceProfiles {
		if len(profile.DocRegexes) == 0 {
			continue
		}

		matched := 0
		for _, re := range profile.DocRegexes {
			if re.MatchString(text) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		fraction := float64(matched) / float64(len(profile.DocRegexes))
		confidence := fraction * d.baselineAccuracy(ctx, profile.Source)

		if confidence > best.Confidence {
			best.Source = profile.Source
			best.Confidence = confidence
		}
	}

	return best
}

func (d *Detector) baselineAccuracy(ctx context.Context, source model.Source) float64 {
	patterns, err := d.store.GetSourcePatterns(ctx, source)
	if err != nil || len(patterns) == 0 {
		return defaultPatternAccuracy
	}

	var sum float64
	for _, p := range patterns {
		sum += p.Accuracy
	}
	return sum / float64(len(patterns))
}

// heuristicMatch combines weighted boolean feature checks: date-format
// family, known structural phrases, and bank-code presence.
func (d *Detector) heuristicMatch(_ context.Context, text string) model.DetectionResult {
	best := model.DetectionResult{Source: model.SourceUnknown, Method: "heuristic"}
	lower := strings.ToLower(text)

	for _, profile := range sourceProfiles {
		score := 0.0
		totalWeight := 0.0

		// Date format family.
		totalWeight += 0.3
		if profile.DateRegex != nil && profile.DateRegex.MatchString(text) {
			score += 0.3
		}

		// Structural phrases.
		totalWeight += 0.4
		if len(profile.Phrases) > 0 {
			hits := 0
			for _, phrase := range profile.Phrases {
				if strings.Contains(lower, phrase) {
					hits++
				}
			}
			score += 0.4 * float64(hits) / float64(len(profile.Phrases))
		}

		// Bank code in an IBAN.
		totalWeight += 0.3
		if profile.IBANRegex != nil && profile.IBANRegex.MatchString(text) {
			score += 0.3
		}

		confidence := score / totalWeight
		if confidence > best.Confidence {
			best.Source = profile.Source
			best.Confidence = confidence
		}
	}

	return best
}

// fuzzyKeywordMatch compares text tokens against each source's keyword set
// using edit-distance similarity. Always returns a best guess; below a
// sanity floor the source stays UNKNOWN.
func (d *Detector) fuzzyKeywordMatch(_ context.Context, text string) model.DetectionResult {
	best := model.DetectionResult{Source: model.SourceUnknown, Method: "fuzzy-keyword"}
	tokens := textutil.Tokenize(text)
	if len(tokens) == 0 {
		return best
	}
	if len(tokens) > 500 {
		tokens = tokens[:500]
	}

	for _, profile := range sourceProfiles {
		var sum float64
		for _, kw := range profile.Keywords {
			bestToken := 0.0
			for _, tok := range tokens {
				if sim := textutil.Similarity(tok, kw); sim > bestToken {
					bestToken = sim
				}
			}
			sum += bestToken
		}
		confidence := sum / float64(len(profile.Keywords))

		if confidence > best.Confidence {
			best.Confidence = confidence
			if confidence >= 0.4 {
				best.Source = profile.Source
			}
		}
	}

	return best
}

func (d *Detector) recordSample(ctx context.Context, operation string, duration time.Duration, confidence float64) {
	sample := &model.PerformanceSample{
		Operation:  operation,
		Duration:   duration,
		Confidence: confidence,
	}
	if err := d.store.RecordSample(ctx, sample); err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("failed to record detection sample", "error", err)
	}
}
