package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return ctx.Err()
}

func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateMerchant(m *model.MerchantRecord) error {
	if m == nil {
		return fmt.Errorf("merchant cannot be nil")
	}
	if err := validateString(m.NormalizedName, "merchant normalized name"); err != nil {
		return err
	}
	if err := validateString(m.Category, "merchant category"); err != nil {
		return err
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("merchant confidence must be in [0,1], got %f", m.Confidence)
	}
	return nil
}

func validateSourcePattern(p *model.SourcePattern) error {
	if p == nil {
		return fmt.Errorf("source pattern cannot be nil")
	}
	if err := validateString(string(p.Source), "pattern source"); err != nil {
		return err
	}
	if err := validateString(p.Pattern, "pattern text"); err != nil {
		return err
	}
	switch p.Kind {
	case model.KindSignature, model.KindDocumentRegex, model.KindFieldRegex:
	default:
		return fmt.Errorf("unknown pattern kind %q", p.Kind)
	}
	if p.Accuracy < 0 || p.Accuracy > 1 {
		return fmt.Errorf("pattern accuracy must be in [0,1], got %f", p.Accuracy)
	}
	return nil
}

func validateFeedback(e *model.FeedbackEntry) error {
	if e == nil {
		return fmt.Errorf("feedback entry cannot be nil")
	}
	if err := validateString(e.ID, "feedback id"); err != nil {
		return err
	}
	return validateString(e.TransactionID, "feedback transaction id")
}
