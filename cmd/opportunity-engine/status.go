// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/opportunity-engine/internal/store"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database statistics and recent collection runs",
	Long: `Status reports record counts (total, active, duplicates, product-related,
per platform) and the most recent collection run for each platform.`,
	RunE: runStatus,
}

// statusReport is the JSON shape of the status output.
type statusReport struct {
	Stats    store.Stats                     `json:"stats"`
	LastRuns map[string]*types.CollectionRun `json:"last_runs"`
	History  []types.CollectionRun           `json:"history,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	platformFilter, _ := cmd.Flags().GetString("platform")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	historyLimit, _ := cmd.Flags().GetInt("runs")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	platforms := []string{"SAM", "GSA_EBUY", "DIBBS"}
	if platformFilter != "" {
		platforms = []string{strings.ToUpper(platformFilter)}
	}

	lastRuns := make(map[string]*types.CollectionRun)
	for _, p := range platforms {
		run, err := s.LastRun(ctx, p)
		if err != nil {
			return err
		}
		lastRuns[p] = run
	}

	var history []types.CollectionRun
	if historyLimit > 0 {
		history, err = s.RecentRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statusReport{Stats: stats, LastRuns: lastRuns, History: history})
	}

	fmt.Printf("Opportunities: %d total, %d active, %d duplicates, %d product-related\n",
		stats.Total, stats.Active, stats.Duplicates, stats.ProductRelated)

	if len(stats.ByPlatform) > 0 {
		names := make([]string, 0, len(stats.ByPlatform))
		for name := range stats.ByPlatform {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-10s %d\n", name, stats.ByPlatform[name])
		}
	}

	fmt.Printf("\n%-10s  %-10s  %-8s  %-6s  %-8s  %-7s  %s\n",
		"Platform", "Status", "Fetched", "New", "Updated", "Errors", "Started")
	fmt.Println(strings.Repeat("-", 72))
	for _, p := range platforms {
		run := lastRuns[p]
		if run == nil {
			fmt.Printf("%-10s  never collected\n", p)
			continue
		}
		fmt.Printf("%-10s  %-10s  %-8d  %-6d  %-8d  %-7d  %s\n",
			p, run.Status, run.TotalFetched, run.NewRecords, run.UpdatedRecords,
			run.ErrorsCount, run.StartedAt.Format(time.RFC3339))
	}

	if len(history) > 0 {
		fmt.Printf("\nLast %d runs:\n", len(history))
		for _, run := range history {
			fmt.Printf("  %s  %-10s  %-10s  %d fetched, %d new, %d errors\n",
				run.StartedAt.Format(time.RFC3339), run.Platform, run.Status,
				run.TotalFetched, run.NewRecords, run.ErrorsCount)
		}
	}

	return nil
}

func init() {
	statusCmd.Flags().String("platform", "", "limit run history to one platform")
	statusCmd.Flags().Bool("json", false, "output as JSON")
	statusCmd.Flags().Int("runs", 0, "also list the N most recent runs across platforms")

	rootCmd.AddCommand(statusCmd)
}
