package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eivindh/finnscan/internal/observability"
	"github.com/eivindh/finnscan/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan over all enabled profiles",
	Long:  `Discover new listings for every enabled search profile, score them and write the report, notifications and history.`,
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, blob, err := openStore(ctx)
	if err != nil {
		return err
	}

	runner := newRunner(cfg, blob)
	runLog, err := runner.Run(ctx, scan.SourceManual)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintRunSummary(runLog)
		for _, plog := range runLog.Profiles {
			printer.PrintProfileLog(plog)
		}
		printer.PrintTopMatches(runLog.AnalyzedListings())
	}
	return nil
}
