package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/extract"
	"github.com/ioan-nomad/finante-engine/internal/learn"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <transaction-id>",
		Short: "Submit a correction for a previously extracted transaction",
		Long: `Submit a correction for a transaction. The engine lowers confidence in
what it originally decided, learns the corrected values, and takes one
online training step so similar lines classify better next time.`,
		Args: cobra.ExactArgs(1),
		RunE: runFeedback,
	}

	cmd.Flags().String("category", "", "corrected category")
	cmd.Flags().String("description", "", "corrected description")
	cmd.Flags().String("date", "", "corrected date (DD/MM/YYYY or ISO)")
	cmd.Flags().String("amount", "", "corrected amount")
	cmd.Flags().String("original-description", "", "original transaction description")
	cmd.Flags().String("original-category", "", "original category")
	cmd.Flags().String("original-source", "", "original detected source")

	return cmd
}

func runFeedback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return common.NewUserError("Failed to migrate the learning store", err)
	}

	origDesc, _ := cmd.Flags().GetString("original-description")
	origCat, _ := cmd.Flags().GetString("original-category")
	origSource, _ := cmd.Flags().GetString("original-source")

	original := model.Transaction{
		ID:          args[0],
		Description: origDesc,
		Category:    origCat,
		Source:      model.Source(origSource),
	}

	correction, err := buildCorrection(cmd)
	if err != nil {
		return err
	}
	if correction.IsEmpty() {
		return common.NewUserError("Nothing to correct: pass --category, --description, --date, or --amount", nil)
	}

	classifier, err := learn.NewLineClassifier(ctx, store)
	if err != nil {
		return err
	}

	processor := learn.NewFeedbackProcessor(store, store, classifier)
	if err := processor.Apply(ctx, original, correction); err != nil {
		return common.NewUserError("Failed to apply feedback", err)
	}

	fmt.Println("Feedback recorded.")
	return nil
}

func buildCorrection(cmd *cobra.Command) (model.Correction, error) {
	var correction model.Correction

	if v, _ := cmd.Flags().GetString("category"); v != "" {
		correction.Category = &v
	}
	if v, _ := cmd.Flags().GetString("description"); v != "" {
		correction.Description = &v
	}
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		var t time.Time
		t, err := extract.ParseDate(v, extract.DefaultCenturyPrefix)
		if err != nil {
			return correction, common.NewUserError("Invalid --date", err)
		}
		correction.Date = &t
	}
	if v, _ := cmd.Flags().GetString("amount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil {
			return correction, common.NewUserError("Invalid --amount", err)
		}
		amount = amount.Round(2)
		correction.Amount = &amount
	}

	return correction, nil
}
