// Package scheduling runs updates periodically on a cron schedule.
//
// Scheduled runs share the run lock with webhook triggers; a tick that finds the lock held is
// skipped.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

// updateWaitTimeout bounds how long shutdown waits for a running update.
const updateWaitTimeout = 60 * time.Second

// Scheduler runs updates on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	lock      chan bool
	run       func(ctx context.Context)
	onSkipped func()
	ctx       context.Context //nolint:containedctx // Context of the running scheduler, read by ticks.
}

// ValidateSchedule reports whether spec is a valid schedule.
//
// Specs have six fields, seconds first, or use a descriptor such as @hourly or @every 5m.
func ValidateSchedule(spec string) error {
	if _, err := cron.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	return nil
}

// New creates a Scheduler calling run on every tick of spec while holding lock.
//
// onSkipped, if non-nil, is called for every tick skipped because lock was held.
func New(spec string, lock chan bool, run func(ctx context.Context), onSkipped func()) (*Scheduler, error) {
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true
	}

	scheduler := &Scheduler{
		cron:      cron.New(),
		lock:      lock,
		run:       run,
		onSkipped: onSkipped,
		ctx:       context.Background(),
	}

	if err := scheduler.cron.AddFunc(spec, func() { scheduler.Tick(scheduler.ctx) }); err != nil {
		return nil, fmt.Errorf("failed to schedule updates: %w", err)
	}

	return scheduler, nil
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	return entries[0].Schedule.Next(time.Now())
}

// Tick runs one update unless another one is in progress.
//
// The update keeps the values of ctx but not its cancellation, so shutdown never aborts a run
// between its push and its cleanup. Returns whether the update ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	select {
	case token := <-s.lock:
		defer func() { s.lock <- token }()

		logrus.Info("Scheduled update started")
		s.run(context.WithoutCancel(ctx))
	default:
		logrus.Debug("Skipped scheduled update, another update already running")

		if s.onSkipped != nil {
			s.onSkipped()
		}

		return false
	}

	if next := s.Next(); !next.IsZero() {
		logrus.WithField("next", next.Format(time.RFC3339)).Debug("Scheduled next run")
	}

	return true
}

// Run starts the schedule and blocks until ctx is canceled, then waits for a running update.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()

	logrus.WithField("next", s.Next().Format(time.RFC3339)).Info("Scheduled updates started")

	<-ctx.Done()

	s.cron.Stop()
	logrus.Debug("Waiting for running update to be finished...")

	WaitForRunningUpdate(context.WithoutCancel(ctx), s.lock)

	logrus.Debug("Scheduler stopped and update completed.")
}

// WaitForRunningUpdate waits until the run lock is free, giving up after a minute or when ctx is done.
func WaitForRunningUpdate(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) > 0 {
		logrus.Debug("No update running, lock available.")

		return
	}

	timer := time.NewTimer(updateWaitTimeout)
	defer timer.Stop()

	select {
	case token := <-lock:
		logrus.Debug("Lock acquired, update finished.")

		lock <- token
	case <-timer.C:
		logrus.Warn("Timeout waiting for running update to finish, proceeding with shutdown.")
	case <-ctx.Done():
		logrus.Warn("Context cancelled while waiting for running update.")
	}
}
