// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the opportunity-engine CLI.
// Implements: prd001-collection, prd002-classification,
// prd003-standardization, prd004-deduplication (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/opportunity-engine/internal/secrets"
	"github.com/pdiddy/opportunity-engine/internal/store"
	"github.com/pdiddy/opportunity-engine/internal/trigger"
	"github.com/pdiddy/opportunity-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// jobs serializes pipeline invocations so a scheduler firing while a
// previous run is still in flight gets a clean "already running" error.
var jobs = trigger.NewRegistry()

// rootCmd is the base command for the opportunity-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "opportunity-engine",
	Short: "Government procurement opportunity pipeline",
	Long: `opportunity-engine collects procurement opportunities from government
source platforms (SAM.gov, DLA DIBBS, GSA eBuy), classifies them for
product relevance, standardizes agency names and codes, and detects
cross-platform duplicates.

Each pipeline stage is a subcommand: collect, standardize, dedupe.
Use status for run history and codes for the PSC reference table.
External schedulers (cron, systemd timers) drive the stages.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./opportunity-engine.yaml or ~/.config/opportunity-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "base directory for the opportunity database (default: data)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("opportunity-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "opportunity-engine"))
		}
	}

	viper.SetEnvPrefix("OPPORTUNITY_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// openStore opens the opportunity database under the configured data
// directory. Precedence: --data-dir flag, then config file, then "data".
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = viper.GetString("store.data_dir")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	return store.NewStore(dataDir)
}

// collectConfig assembles the collection settings from flags, config
// file, and secrets. The API key precedence is flag, then config, then
// the sam-gov-api-key secret file.
func collectConfig(cmd *cobra.Command) types.CollectConfig {
	cfg := types.CollectConfig{
		WindowDays:    viper.GetInt("collect.window_days"),
		PageSize:      viper.GetInt("collect.page_size"),
		EnableSAM:     true,
		EnableGSAEBuy: true,
		EnableDIBBS:   true,
	}
	cfg.UserAgent = viper.GetString("collect.user_agent")
	if cfg.UserAgent == "" {
		cfg.UserAgent = "opportunity-engine/" + version
	}
	cfg.Timeout = viper.GetDuration("collect.timeout")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	if windowDays, _ := cmd.Flags().GetInt("window-days"); windowDays > 0 {
		cfg.WindowDays = windowDays
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Timeout = timeout
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("collect.sam_api_key")
	}
	cfg.SAMAPIKey = secrets.Value(loadedSecrets, "sam-gov-api-key", apiKey)

	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
