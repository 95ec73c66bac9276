// Package extract converts normalized statement lines into candidate
// transactions using source-specific field patterns.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

// LinePrefilter scores how likely a raw line is to be a transaction. The
// auxiliary line classifier implements this; a nil prefilter means every
// line goes through pattern matching.
type LinePrefilter interface {
	Predict(line string) float64
}

// PrefilterThreshold is the score a line must clear to pass the prefilter.
const PrefilterThreshold = 0.6

// minPrefilteredLines guards against an overeager prefilter: when fewer
// lines than this survive, extraction runs over every line unconditionally.
const minPrefilteredLines = 3

// Extractor converts text lines into candidate transactions.
type Extractor struct {
	prefilter     LinePrefilter
	centuryPrefix string
}

// NewExtractor creates an Extractor. prefilter may be nil.
func NewExtractor(prefilter LinePrefilter) *Extractor {
	return &Extractor{
		prefilter:     prefilter,
		centuryPrefix: DefaultCenturyPrefix,
	}
}

// Extract applies the detected source's date and amount patterns to each
// line independently. Lines matching neither pattern are skipped without
// error.
func (e *Extractor) Extract(ctx context.Context, lines []string, detection model.DetectionResult) ([]model.Transaction, error) {
	start := time.Now()
	patterns := PatternsFor(detection.Source)

	candidates := e.prefilterLines(lines)

	var transactions []model.Transaction
	for _, line := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		txn, ok := e.extractLine(line, patterns, detection)
		if !ok {
			continue
		}
		transactions = append(transactions, txn)
	}

	common.LogStage("extract", string(detection.Source), time.Since(start), detection.Confidence)
	slog.Debug("line extraction complete",
		"lines", len(lines),
		"candidates", len(candidates),
		"transactions", len(transactions))

	return transactions, nil
}

// prefilterLines runs the auxiliary classifier over the lines. Too few
// survivors means the classifier is mistrusted for this document and every
// line is kept.
func (e *Extractor) prefilterLines(lines []string) []string {
	if e.prefilter == nil || len(lines) <= minPrefilteredLines {
		return lines
	}

	accepted := make([]string, 0, len(lines))
	for _, line := range lines {
		if e.prefilter.Predict(line) >= PrefilterThreshold {
			accepted = append(accepted, line)
		}
	}

	if len(accepted) < minPrefilteredLines {
		slog.Debug("prefilter kept too few lines, extracting all",
			"accepted", len(accepted), "total", len(lines))
		return lines
	}
	return accepted
}

func (e *Extractor) extractLine(line string, patterns LinePatterns, detection model.DetectionResult) (model.Transaction, bool) {
	dateMatch := patterns.Date.FindString(line)
	if dateMatch == "" {
		return model.Transaction{}, false
	}

	// The date substring could contain amount-like digits; search the
	// remainder for the amount.
	rest := strings.Replace(line, dateMatch, " ", 1)
	amountMatch := patterns.Amount.FindString(rest)
	if amountMatch == "" {
		return model.Transaction{}, false
	}

	date, err := ParseDate(dateMatch, e.centuryPrefix)
	if err != nil {
		return model.Transaction{}, false
	}

	amount, txType, err := ParseAmount(amountMatch)
	if err != nil || amount.IsZero() {
		return model.Transaction{}, false
	}

	description := buildDescription(rest, amountMatch)
	if description == "" {
		return model.Transaction{}, false
	}

	txn := model.Transaction{
		Date:             date,
		Description:      description,
		Amount:           amount,
		Type:             txType,
		Source:           detection.Source,
		SourceConfidence: detection.Confidence,
	}
	txn.ID = txn.GenerateID()
	return txn, true
}

// buildDescription is the line with the matched date and amount substrings
// removed, whitespace collapsed, and length bounded.
func buildDescription(rest, amountMatch string) string {
	desc := strings.Replace(rest, amountMatch, " ", 1)
	desc = strings.Join(strings.Fields(desc), " ")
	desc = strings.Trim(desc, "-– ")

	if len(desc) > model.MaxDescriptionLength {
		desc = desc[:model.MaxDescriptionLength]
		desc = strings.TrimSpace(desc)
	}
	return desc
}
