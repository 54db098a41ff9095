package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
)

// Scheduler triggers full syncs on a timer, when the app returns to the
// foreground and on demand. At most one sync runs at a time; triggers that
// arrive meanwhile collapse into a single follow-up run.
type Scheduler struct {
	rec      *Reconciler
	interval time.Duration
	cron     *cron.Cron
	log      logrus.FieldLogger

	running atomic.Bool
	rerun   atomic.Bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler that syncs every interval once started.
func NewScheduler(rec *Reconciler, interval time.Duration, log logrus.FieldLogger) *Scheduler {
	l := loggerOrDiscard(log).WithField("component", "scheduler")
	return &Scheduler{
		rec:      rec,
		interval: interval,
		cron:     cron.New(cron.WithLogger(cron.PrintfLogger(l))),
		log:      l,
	}
}

// Start runs an initial sync in the background and schedules the periodic
// one. ctx bounds every scheduled run.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", s.interval)
	}
	if _, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.Trigger(ctx, "timer")
	}); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Trigger(ctx, "startup")
	}()
	s.log.WithField("interval", s.interval).Info("scheduler started")
	return nil
}

// Stop halts the timer and waits for running syncs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// Foreground syncs when the app becomes active.
func (s *Scheduler) Foreground(ctx context.Context) (domain.SyncStatus, bool) {
	return s.Trigger(ctx, "foreground")
}

// SyncNow syncs on explicit user request.
func (s *Scheduler) SyncNow(ctx context.Context) (domain.SyncStatus, bool) {
	return s.Trigger(ctx, "manual")
}

// Trigger runs a full sync unless one is already running. The boolean is
// false when the trigger was folded into the running sync; the returned
// status is then the current one.
func (s *Scheduler) Trigger(ctx context.Context, reason string) (domain.SyncStatus, bool) {
	log := s.log.WithField("trigger", reason)
	if !s.running.CompareAndSwap(false, true) {
		s.rerun.Store(true)
		log.Debug("sync in flight, coalescing trigger")
		return s.rec.Status(ctx), false
	}

	for {
		st := s.rec.FullSync(ctx)
		s.running.Store(false)
		if !s.rerun.Swap(false) || !s.running.CompareAndSwap(false, true) {
			log.WithFields(logrus.Fields{
				"online":  st.IsOnline,
				"pending": st.PendingChanges,
			}).Debug("sync finished")
			return st, true
		}
		log.Debug("running coalesced follow-up sync")
	}
}

// Running reports whether a sync is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}
