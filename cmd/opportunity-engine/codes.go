// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/opportunity-engine/internal/standardize"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage the PSC reference table",
	Long: `Codes maintains the Product Service Code reference table. Use --seed
with a YAML file to load or refresh entries; without it, the active
product codes are listed.`,
	RunE: runCodes,
}

func runCodes(cmd *cobra.Command, args []string) error {
	seedFile, _ := cmd.Flags().GetString("seed")

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	if seedFile != "" {
		n, err := s.SeedPSCCodes(ctx, seedFile)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d PSC codes from %s\n", n, seedFile)
		return nil
	}

	codes, err := s.ProductPSCCodes(ctx)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		fmt.Println("No product PSC codes loaded. Seed the table with --seed <file>.")
		return nil
	}

	for _, c := range codes {
		fmt.Printf("%-6s  %s\n", standardize.Code(c.Code), c.Name)
	}
	fmt.Printf("\n%d product codes\n", len(codes))
	return nil
}

func init() {
	codesCmd.Flags().String("seed", "", "YAML file of PSC code entries to load")

	rootCmd.AddCommand(codesCmd)
}
