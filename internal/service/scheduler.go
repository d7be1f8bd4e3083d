package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// SyncScheduler runs full reconciliation passes on a fixed interval. Passes
// re-derive everything from the provider, so overlapping schedules stay
// idempotent; SingletonMode still prevents concurrent passes piling up.
type SyncScheduler struct {
	scheduler *gocron.Scheduler
	tickets   *TicketService
	interval  time.Duration
	logger    *logger.Logger
}

// NewSyncScheduler creates a scheduler. An interval of zero disables it.
func NewSyncScheduler(tickets *TicketService, interval time.Duration, log *logger.Logger) *SyncScheduler {
	return &SyncScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		tickets:   tickets,
		interval:  interval,
		logger:    log,
	}
}

// Start begins the background schedule. No-op when disabled.
func (s *SyncScheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("reconciliation scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		ctx := context.Background()
		report, err := s.tickets.FullPass(ctx)
		if err != nil {
			s.logger.Error("scheduled reconciliation pass failed", zap.Error(err))
			return
		}
		s.logger.Info("scheduled reconciliation pass finished",
			zap.Int("discovered", report.Discovered),
			zap.Int("upserted", report.Upserted),
			zap.Int("skipped", report.Skipped),
		)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("reconciliation scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (s *SyncScheduler) Stop() {
	s.scheduler.Stop()
}
