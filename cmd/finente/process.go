package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ioan-nomad/finante-engine/internal/classify"
	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/docproc"
	"github.com/ioan-nomad/finante-engine/internal/engine"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <files...>",
		Short: "Extract and classify transactions from statement documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runProcess,
	}

	cmd.Flags().String("source", "", "source hint (BT, BCR, ING, BRD, RAIFFEISEN, REVOLUT)")
	cmd.Flags().String("output", "table", "output format (table, json)")
	cmd.Flags().String("rules", "", "category rules YAML file (default: built-in)")
	cmd.Flags().String("ocr-language", "ron+eng", "tesseract language set")
	cmd.Flags().Int("parallelism", 4, "documents processed in parallel")

	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return common.NewUserError("Failed to migrate the learning store", err)
	}

	rules := classify.DefaultRules()
	if path, _ := cmd.Flags().GetString("rules"); path != "" {
		rules, err = classify.LoadRules(path)
		if err != nil {
			return common.NewUserError("Failed to load category rules", err)
		}
	}

	ocrLang, _ := cmd.Flags().GetString("ocr-language")
	parallelism, _ := cmd.Flags().GetInt("parallelism")
	if v := viper.GetInt("engine.parallelism"); v > 0 && !cmd.Flags().Changed("parallelism") {
		parallelism = v
	}

	eng, err := engine.New(ctx, engine.Config{
		Store:       store,
		Extractor:   docproc.NewPDFExtractor(),
		OCR:         docproc.NewTesseractEngine(ocrLang),
		Rules:       rules,
		Parallelism: parallelism,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	hint := model.Source(strings.ToUpper(viper.GetString("process.source")))
	if s, _ := cmd.Flags().GetString("source"); s != "" {
		hint = model.Source(strings.ToUpper(s))
	}

	docs := make([]*docproc.RawDocument, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-provided path
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Cannot read %s", path), err)
		}
		docs = append(docs, &docproc.RawDocument{
			Name: filepath.Base(path),
			MIME: mime.TypeByExtension(filepath.Ext(path)),
			Data: data,
		})
	}

	bar := progressbar.Default(int64(len(docs)), "processing")
	results := make([][]model.Transaction, len(docs))
	for i, doc := range docs {
		txns, err := eng.Process(ctx, doc, hint)
		if err != nil {
			return common.NewUserError(fmt.Sprintf("Failed to process %s", doc.Name), err)
		}
		results[i] = txns
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	output, _ := cmd.Flags().GetString("output")
	return printResults(docs, results, output)
}

func printResults(docs []*docproc.RawDocument, results [][]model.Transaction, format string) error {
	if format == "json" {
		all := make([]model.Transaction, 0)
		for _, txns := range results {
			all = append(all, txns...)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	for i, txns := range results {
		fmt.Printf("\n%s — %d transactions\n", docs[i].Name, len(txns))
		for _, t := range txns {
			review := ""
			if t.NeedsReview {
				review = "  [review]"
			}
			fmt.Printf("  %s  %8s %-7s  %-14s %.2f  %s%s\n",
				t.Date.Format("2006-01-02"),
				t.Amount.StringFixed(2),
				t.Type,
				t.Category,
				t.Confidence,
				t.Description,
				review)
		}
	}
	return nil
}
