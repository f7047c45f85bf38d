package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/eivindh/finnscan/internal/scheduler"
	"github.com/eivindh/finnscan/internal/server"
)

var (
	servePort     int
	serveInterval int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the dashboard REST API, with optional cron-scheduled scans.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT)")
	serveCmd.Flags().IntVar(&serveInterval, "interval", -1, "Hours between scheduled scans, 0 disables (default from SCAN_INTERVAL_HOURS)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, blob, err := openStore(ctx)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Port = servePort
	}
	if serveInterval >= 0 {
		cfg.ScanIntervalHours = serveInterval
	}

	runner := newRunner(cfg, blob)
	runGuard := semaphore.NewWeighted(1)

	if cfg.ScanIntervalHours > 0 {
		sched := scheduler.New(runner, runGuard, cfg.ScanIntervalHours)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	srv := server.New(server.Config{Port: cfg.Port}, blob, runner, runGuard)
	return srv.Start()
}
