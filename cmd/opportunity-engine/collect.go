// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/opportunity-engine/internal/classify"
	"github.com/pdiddy/opportunity-engine/internal/collect"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect opportunities from government source platforms",
	Long: `Collect fetches procurement postings from SAM.gov, GSA eBuy, and DLA
DIBBS for the configured posted-date window, classifies them for product
relevance, and lands them in the opportunity database keyed by
solicitation number.

Connectors run concurrently; a failing platform degrades the pass but
never aborts it. Re-observed solicitations only have their sync time
refreshed.`,
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg := collectConfig(cmd)

	platforms, _ := cmd.Flags().GetString("platforms")
	applyPlatformFilter(&cfg, platforms)

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	client := &http.Client{Timeout: cfg.Timeout}

	var connectors []collect.Connector
	if cfg.EnableSAM {
		connectors = append(connectors, collect.NewSAMConnector(client, cfg))
	}
	if cfg.EnableGSAEBuy {
		connectors = append(connectors, collect.NewGSAEBuyConnector(client, cfg))
	}
	if cfg.EnableDIBBS {
		connectors = append(connectors, collect.NewDIBBSConnector(client, cfg))
	}
	if len(connectors) == 0 {
		return fmt.Errorf("no platforms selected: use --platforms with sam, gsa_ebuy, dibbs")
	}

	classifier := classify.New(types.ClassifyConfig{
		ProductCodeLow:  viper.GetInt("classify.product_code_low"),
		ProductCodeHigh: viper.GetInt("classify.product_code_high"),
		Keywords:        viper.GetStringSlice("classify.keywords"),
	})
	orchestrator := collect.NewOrchestrator(s, classifier, cfg)

	return jobs.Run(context.Background(), "collect", func(ctx context.Context) error {
		summary, err := orchestrator.RunCollection(ctx, connectors, os.Stdout)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("all %d connector(s) failed", len(connectors))
		}
		return nil
	})
}

// applyPlatformFilter narrows the enabled connectors to the
// comma-separated platform list, e.g. "sam,dibbs".
func applyPlatformFilter(cfg *types.CollectConfig, platforms string) {
	if platforms == "" {
		return
	}
	cfg.EnableSAM = false
	cfg.EnableGSAEBuy = false
	cfg.EnableDIBBS = false
	for _, p := range strings.Split(platforms, ",") {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "sam":
			cfg.EnableSAM = true
		case "gsa_ebuy", "gsaebuy", "gsa":
			cfg.EnableGSAEBuy = true
		case "dibbs":
			cfg.EnableDIBBS = true
		}
	}
}

func init() {
	collectCmd.Flags().Int("window-days", 0, "posted-date window in days (default 30)")
	collectCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	collectCmd.Flags().String("platforms", "", "comma-separated platforms to collect (sam, gsa_ebuy, dibbs; default all)")
	collectCmd.Flags().String("api-key", "", "SAM.gov API key (overrides config and secrets)")

	rootCmd.AddCommand(collectCmd)
}
