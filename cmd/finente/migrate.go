package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/service"
	"github.com/ioan-nomad/finante-engine/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending learning store migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return common.NewUserError("Migration failed", err)
			}

			fmt.Printf("Learning store is at schema version %d.\n", storage.ExpectedSchemaVersion)
			return nil
		},
	}
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the retention pass over the learning store",
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

			keep, _ := cmd.Flags().GetInt("keep-feedback")
			opts := service.DefaultCleanupOptions()
			if keep > 0 {
				opts.KeepFeedback = keep
			}

			result, err := store.Cleanup(ctx, opts)
			if err != nil {
				return common.NewUserError("Cleanup failed", err)
			}

			fmt.Printf("Removed %d stale merchants, trimmed %d feedback entries, pruned %d samples.\n",
				result.MerchantsRemoved, result.FeedbackTrimmed, result.SamplesPruned)
			return nil
		},
	}

	cmd.Flags().Int("keep-feedback", 0, "override how many feedback entries to keep")
	return cmd
}
