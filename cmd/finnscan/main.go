// Package main provides the entry point for the FINN.no job scanner.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eivindh/finnscan/internal/config"
	"github.com/eivindh/finnscan/internal/reporter"
	"github.com/eivindh/finnscan/internal/scan"
	"github.com/eivindh/finnscan/internal/storage"
	"github.com/eivindh/finnscan/internal/types"
)

var rootCmd = &cobra.Command{
	Use:   "finnscan",
	Short: "FINN.no job scanner",
	Long:  "Scans FINN.no job searches against candidate profiles, scores new listings with Gemini and publishes reports and notifications.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore resolves app config and opens the configured blob store.
func openStore(ctx context.Context) (*config.App, storage.Store, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	blob, err := storage.Open(ctx, cfg.StorageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return cfg, blob, nil
}

// newRunner builds a scan runner from app config, wiring Telegram delivery
// when a bot token is configured.
func newRunner(cfg *config.App, blob storage.Store) *scan.Runner {
	runner := scan.NewRunner(blob, cfg)

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := reporter.NewTelegramReporter(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			fmt.Printf("Warning: telegram delivery disabled: %v\n", err)
			return runner
		}
		runner.Deliver = func(analyzed []types.Listing) {
			if err := tg.SendScanSummary(analyzed); err != nil {
				fmt.Printf("Warning: telegram delivery failed: %v\n", err)
			}
		}
	}
	return runner
}
