package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// completionSweeper is the part of BookingService the scheduler drives
type completionSweeper interface {
	SweepCompleted(ctx context.Context) (int, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	sweeper  completionSweeper
	schedule string
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewCronService creates a new CronService.
// schedule uses the six-field format with seconds.
func NewCronService(sweeper completionSweeper, schedule string, logger *logrus.Logger) *CronService {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &CronService{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// second minute hour day month weekday
	if _, err := s.cron.AddFunc(s.schedule, s.completeElapsedBookingsJob); err != nil {
		return fmt.Errorf("failed to schedule completion sweep: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: complete elapsed bookings")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// completeElapsedBookingsJob marks confirmed bookings whose slot has ended as completed
func (s *CronService) completeElapsedBookingsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	startTime := time.Now()
	completed, err := s.sweeper.SweepCompleted(ctx)
	entry := s.logger.WithFields(logrus.Fields{
		"job":       "complete_elapsed_bookings",
		"completed": completed,
		"duration":  time.Since(startTime).String(),
	})
	if err != nil {
		entry.WithError(err).Error("[CRON] Completion sweep failed")
		return
	}
	entry.Info("[CRON] Completion sweep finished")
}

// RunCompletionSweepNow runs the completion sweep immediately
func (s *CronService) RunCompletionSweepNow() {
	s.completeElapsedBookingsJob()
}
