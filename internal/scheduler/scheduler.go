// Package scheduler wires up the cron job that periodically triggers scan
// runs in serve mode.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/eivindh/finnscan/internal/scan"
)

// Runner starts scan runs. Implemented by scan.Runner.
type Runner interface {
	RunAt(ctx context.Context, source string, start time.Time) (*scan.RunLog, error)
}

// Scheduler wraps robfig/cron and manages the periodic scan loop.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	runGuard *semaphore.Weighted
	spec     string // cron spec, e.g. "@every 6h"
	now      func() time.Time
}

// New creates a Scheduler that fires every intervalHours hours. The run
// guard is shared with the manual trigger so scans never overlap.
func New(runner Runner, runGuard *semaphore.Weighted, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		runner:   runner,
		runGuard: runGuard,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
		now:      time.Now,
	}
}

// Start registers the job and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)
	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// tick runs one scheduled scan. A tick that lands while another scan is
// active is skipped rather than queued.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.runGuard.TryAcquire(1) {
		log.Println("[scheduler] Scan already running, skipping tick")
		return
	}
	defer s.runGuard.Release(1)

	log.Println("[scheduler] Scan cycle started")
	if _, err := s.runner.RunAt(ctx, scan.SourceScheduled, s.now()); err != nil {
		log.Printf("[scheduler] Scan error: %v", err)
		return
	}
	log.Println("[scheduler] Scan cycle complete")
}
