package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
)

const (
	// dueSoonWindow is how far ahead a due date triggers a reminder.
	dueSoonWindow = 24 * time.Hour
	// remindEvery suppresses repeat reminders for the same task.
	remindEvery = 24 * time.Hour

	jobTimeout = 5 * time.Minute
)

// ReminderNotifier is satisfied by *notification.Service.
type ReminderNotifier interface {
	TaskDueSoon(ctx context.Context, task *repository.Task) error
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron             *cron.Cron
	taskRepo         repository.TaskRepository
	notificationRepo repository.NotificationRepository
	notifier         ReminderNotifier
	retention        time.Duration

	now func() time.Time
}

// NewScheduler builds a scheduler. retentionDays <= 0 disables the purge job.
func NewScheduler(
	taskRepo repository.TaskRepository,
	notificationRepo repository.NotificationRepository,
	notifier ReminderNotifier,
	retentionDays int,
) *Scheduler {
	return &Scheduler{
		cron:             cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		taskRepo:         taskRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
		retention:        time.Duration(retentionDays) * 24 * time.Hour,
		now:              time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	// Hourly due-soon reminders
	if _, err := s.cron.AddFunc("0 * * * *", s.job("due_soon_reminders", s.RemindDueSoon)); err != nil {
		return err
	}

	// Daily purge of old read notifications, 3 AM
	if s.retention > 0 {
		if _, err := s.cron.AddFunc("0 3 * * *", s.job("notification_purge", s.PurgeNotifications)); err != nil {
			return err
		}
	}

	s.cron.Start()
	logger.Info().Str("component", "cron").Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	logger.Info().Str("component", "cron").Msg("scheduler stopped")
}

func (s *Scheduler) job(name string, run func(ctx context.Context) (int, error)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := s.now()
		n, err := run(ctx)
		if err != nil {
			logger.Error().Err(err).Str("job", name).Msg("cron job failed")
			return
		}
		logger.Info().Str("job", name).Int("affected", n).Dur("took", s.now().Sub(start)).Msg("cron job finished")
	}
}

// ============================================
// Jobs
// ============================================

// RemindDueSoon notifies assignees of tasks due within the next day and
// returns how many reminders were sent. A failed task is logged and skipped.
func (s *Scheduler) RemindDueSoon(ctx context.Context) (int, error) {
	now := s.now()
	tasks, err := s.taskRepo.FindDueForReminder(ctx, now.Add(dueSoonWindow), now.Add(-remindEvery))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, task := range tasks {
		if err := s.notifier.TaskDueSoon(ctx, task); err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("due soon reminder failed")
			continue
		}
		if err := s.taskRepo.MarkReminded(ctx, task.ID, now); err != nil {
			logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to mark task reminded")
			continue
		}
		sent++
	}
	return sent, nil
}

// PurgeNotifications deletes read notifications older than the retention period.
func (s *Scheduler) PurgeNotifications(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	return s.notificationRepo.DeleteReadOlderThan(ctx, s.now().Add(-s.retention))
}

// cronLogger adapts the zerolog wrapper to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug().Str("component", "cron").Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error().Err(err).Str("component", "cron").Fields(keysAndValues).Msg(msg)
}
