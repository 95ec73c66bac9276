package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioan-nomad/finante-engine/internal/common"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show learning store statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(ctx); err != nil {
				return common.NewUserError("Failed to migrate the learning store", err)
			}

			stats, err := store.Stats(ctx)
			if err != nil {
				return common.NewUserError("Failed to read statistics", err)
			}

			fmt.Printf("Merchants:  %d\n", stats.MerchantCount)
			fmt.Printf("Feedback:   %d\n", stats.FeedbackCount)
			if len(stats.PerSourceAccuracy) > 0 {
				fmt.Println("Per-source pattern accuracy:")
				for source, accuracy := range stats.PerSourceAccuracy {
					fmt.Printf("  %-12s %.2f\n", source, accuracy)
				}
			}
			return nil
		},
	}
}
