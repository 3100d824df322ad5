// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/opportunity-engine/internal/standardize"
)

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Normalize agency names, titles, and classification codes",
	Long: `Standardize rewrites active opportunities into canonical form: agency
aliases resolve to full names, titles get consistent casing with
procurement abbreviations preserved, and short classification codes are
padded to four characters. The pass is idempotent; rerunning it changes
nothing.`,
	RunE: runStandardize,
}

func runStandardize(cmd *cobra.Command, args []string) error {
	aliasFile, _ := cmd.Flags().GetString("alias-file")
	if aliasFile == "" {
		aliasFile = viper.GetString("standardize.alias_file")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = viper.GetInt("standardize.batch_limit")
	}
	if limit <= 0 {
		limit = 500
	}

	var std *standardize.Standardizer
	var err error
	if aliasFile != "" {
		std, err = standardize.NewFromFile(aliasFile)
		if err != nil {
			return err
		}
	} else {
		std = standardize.New()
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return jobs.Run(context.Background(), "standardize", func(ctx context.Context) error {
		var processed, changed int
		var afterID int64

		for processed < limit {
			batch, err := s.ActiveBatch(ctx, afterID, limit-processed)
			if err != nil {
				return err
			}
			if len(batch) == 0 {
				break
			}

			for i := range batch {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				op := &batch[i]
				afterID = op.ID
				processed++

				if !std.Apply(op) {
					continue
				}
				if err := s.SaveStandardized(ctx, op); err != nil {
					return err
				}
				changed++
			}
		}

		fmt.Printf("Standardization: %d records processed, %d changed\n", processed, changed)
		return nil
	})
}

func init() {
	standardizeCmd.Flags().Int("limit", 0, "maximum records per pass (default 500)")
	standardizeCmd.Flags().String("alias-file", "", "YAML file of agency alias overrides")

	rootCmd.AddCommand(standardizeCmd)
}
