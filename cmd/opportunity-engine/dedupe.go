// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/opportunity-engine/internal/dedupe"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Detect and mark cross-platform duplicate opportunities",
	Long: `Dedupe scores recently collected opportunities against nearby records
using fuzzy similarity over title, description, agency, and posted date.
Pairs at or above the threshold are linked: the more authoritative
record becomes the master and the other is marked duplicate with an
audit trail. Duplicate links never chain.

With --cleanup-days, stale closed/awarded/cancelled records older than
the cutoff are also removed.`,
	RunE: runDedupe,
}

func runDedupe(cmd *cobra.Command, args []string) error {
	cfg := types.DedupeConfig{
		SimilarityThreshold: viper.GetFloat64("dedupe.similarity_threshold"),
		DateWindowDays:      viper.GetInt("dedupe.date_window_days"),
		CandidateCap:        viper.GetInt("dedupe.candidate_cap"),
		BatchLimit:          viper.GetInt("dedupe.batch_limit"),
		RecencyWindowDays:   viper.GetInt("dedupe.recency_window_days"),
		DescriptionPrefix:   viper.GetInt("dedupe.description_prefix"),
		PlatformAuthority:   viper.GetStringSlice("dedupe.platform_authority"),
	}
	if threshold, _ := cmd.Flags().GetFloat64("threshold"); threshold > 0 {
		cfg.SimilarityThreshold = threshold
	}
	if windowDays, _ := cmd.Flags().GetInt("window-days"); windowDays > 0 {
		cfg.DateWindowDays = windowDays
	}
	if recencyDays, _ := cmd.Flags().GetInt("recency-days"); recencyDays > 0 {
		cfg.RecencyWindowDays = recencyDays
	}
	limit, _ := cmd.Flags().GetInt("limit")
	cleanupDays, _ := cmd.Flags().GetInt("cleanup-days")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	engine := dedupe.NewEngine(s, cfg)

	return jobs.Run(context.Background(), "dedupe", func(ctx context.Context) error {
		if _, err := engine.Run(ctx, limit, os.Stdout); err != nil {
			return err
		}

		if cleanupDays > 0 {
			cutoff := time.Now().UTC().AddDate(0, 0, -cleanupDays)
			deleted, err := s.DeleteInactiveBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("Cleanup: removed %d inactive records older than %d days\n", deleted, cleanupDays)
		}
		return nil
	})
}

func init() {
	dedupeCmd.Flags().Int("limit", 0, "maximum targets per batch (default 100)")
	dedupeCmd.Flags().Float64("threshold", 0, "similarity threshold (default 0.85)")
	dedupeCmd.Flags().Int("window-days", 0, "candidate posted-date window in days (default 14)")
	dedupeCmd.Flags().Int("recency-days", 0, "target recency window in days (default 7)")
	dedupeCmd.Flags().Int("cleanup-days", 0, "also delete inactive records older than this many days")

	rootCmd.AddCommand(dedupeCmd)
}
