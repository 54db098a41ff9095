package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"lifesync/internal/domain"
	"lifesync/internal/metrics"
)

// FlushResult counts the outcome of one queue drain.
type FlushResult struct {
	Flushed  int `json:"flushed"`
	Dropped  int `json:"dropped"`
	Retained int `json:"retained"`
}

// Reconciler drains the pending queue to the remote API and refreshes the
// local cache from it. It is the only writer of sync metadata.
type Reconciler struct {
	store   domain.CacheStore
	remote  domain.Gateway
	policy  *ConnectivityPolicy
	log     logrus.FieldLogger
	metrics *metrics.Collector
	now     func() time.Time

	syncing atomic.Bool
}

// NewReconciler creates a Reconciler. It shares policy with the domain
// services so that both agree on connectivity and partition ownership. log and
// m may be nil.
func NewReconciler(store domain.CacheStore, remote domain.Gateway, policy *ConnectivityPolicy, log logrus.FieldLogger, m *metrics.Collector) *Reconciler {
	return &Reconciler{
		store:   store,
		remote:  remote,
		policy:  policy,
		log:     loggerOrDiscard(log).WithField("component", "reconciler"),
		metrics: m,
		now:     time.Now,
	}
}

// FlushPendingChanges replays queued changes oldest first and returns how
// many the remote accepted. It does nothing offline.
func (r *Reconciler) FlushPendingChanges(ctx context.Context) int {
	if !r.policy.Online(ctx) {
		return 0
	}
	return r.flush(ctx).Flushed
}

// flush replays every queued change once. Accepted and permanently rejected
// changes leave the queue; server errors and transport failures stay for the
// next cycle. Each change is claimed before replay, so a write arriving
// meanwhile queues a new change instead of rewriting the one on the wire.
func (r *Reconciler) flush(ctx context.Context) FlushResult {
	start := r.now()
	var res FlushResult
	defer func() {
		r.metrics.RecordFlush(res.Flushed, res.Dropped, res.Retained)
		r.metrics.RecordSyncPhase("flush", r.now().Sub(start))
	}()

	changes, err := r.store.ListPending(ctx)
	if err != nil {
		r.log.WithError(err).Warn("list pending changes")
		return res
	}

	for _, listed := range changes {
		if ctx.Err() != nil {
			break
		}
		log := r.log.WithFields(logrus.Fields{"change_id": listed.ID, "method": listed.Method, "endpoint": listed.Endpoint})

		c, ok, err := r.store.ClaimPending(ctx, listed.ID)
		if err != nil {
			log.WithError(err).Warn("claim pending change")
			res.Retained++
			continue
		}
		if !ok {
			// Discarded since it was listed, or claimed by another flush.
			continue
		}

		op, err := domain.DecodeOperation(c)
		if err != nil {
			log.WithError(err).Warn("dropping undecodable change")
			r.remove(ctx, log, c.ID)
			res.Dropped++
			continue
		}

		err = r.remote.Replay(ctx, op.Request())
		switch {
		case err == nil:
			r.remove(ctx, log, c.ID)
			res.Flushed++
		case domain.IsClientError(err):
			log.WithError(err).Warn("remote rejected change, dropping")
			r.remove(ctx, log, c.ID)
			res.Dropped++
		default:
			log.WithError(err).Info("replay failed, will retry")
			if err := r.store.ReleasePending(ctx, c.ID); err != nil {
				log.WithError(err).Error("release pending change")
			}
			res.Retained++
		}
	}

	if res.Flushed+res.Dropped+res.Retained > 0 {
		r.log.WithFields(logrus.Fields{
			"flushed":  res.Flushed,
			"dropped":  res.Dropped,
			"retained": res.Retained,
		}).Info("flushed pending changes")
	}
	return res
}

func (r *Reconciler) remove(ctx context.Context, log logrus.FieldLogger, id string) {
	if err := r.store.RemovePending(ctx, id); err != nil {
		log.WithError(err).Error("remove pending change")
	}
}

// RefreshAllCaches pulls today's nutrition, this week's fitness and budget,
// and the goal list into the cache. The four fetches run concurrently and
// fail independently: a failed domain keeps its previous cache.
func (r *Reconciler) RefreshAllCaches(ctx context.Context) {
	if !r.policy.Online(ctx) {
		return
	}
	r.refresh(ctx)
}

func (r *Reconciler) refresh(ctx context.Context) {
	start := r.now()
	today := r.now()
	date := domain.DayKey(today)
	week := domain.WeekKey(today)

	var g errgroup.Group
	g.Go(r.refreshOne(ctx, "nutrition", func(ctx context.Context) error {
		entries, err := r.remote.FetchNutritionDay(ctx, date)
		if err != nil {
			return err
		}
		defer r.policy.lockPartition(nutritionPartition(date))()
		return r.store.CacheNutritionDay(ctx, date, entries)
	}))
	g.Go(r.refreshOne(ctx, "fitness", func(ctx context.Context) error {
		entries, err := r.remote.FetchFitnessWeek(ctx, week)
		if err != nil {
			return err
		}
		defer r.policy.lockPartition(fitnessPartition(week))()
		return r.store.CacheFitnessWeek(ctx, week, entries)
	}))
	g.Go(r.refreshOne(ctx, "budget", func(ctx context.Context) error {
		entries, err := r.remote.FetchBudgetWeek(ctx, week)
		if err != nil {
			return err
		}
		defer r.policy.lockPartition(budgetPartition(week))()
		return r.store.CacheBudgetWeek(ctx, week, entries)
	}))
	g.Go(r.refreshOne(ctx, "goals", func(ctx context.Context) error {
		goals, err := r.remote.FetchGoals(ctx)
		if err != nil {
			return err
		}
		defer r.policy.lockPartition(goalsPartition)()
		return r.store.CacheGoals(ctx, goals)
	}))
	_ = g.Wait()

	if err := r.store.SetSyncMeta(ctx, domain.MetaLastFullSync, r.now().UTC().Format(time.RFC3339)); err != nil {
		r.log.WithError(err).Warn("record last full sync")
	}
	r.metrics.RecordSyncPhase("refresh", r.now().Sub(start))
}

// refreshOne isolates a domain refresh: its failure is logged, never
// propagated to the group.
func (r *Reconciler) refreshOne(ctx context.Context, name string, fn func(context.Context) error) func() error {
	return func() error {
		if err := fn(ctx); err != nil {
			r.log.WithError(err).WithField("domain", name).Warn("cache refresh failed")
			r.metrics.RecordRefreshFailure(name)
		}
		return nil
	}
}

// FullSync flushes the queue, refreshes every cache and stamps lastSynced.
// Offline it only reports status.
func (r *Reconciler) FullSync(ctx context.Context) domain.SyncStatus {
	online := r.policy.Online(ctx)
	if online {
		r.syncing.Store(true)
		start := r.now()
		r.flush(ctx)
		r.refresh(ctx)
		if err := r.store.SetSyncMeta(ctx, domain.MetaLastSynced, r.now().UTC().Format(time.RFC3339)); err != nil {
			r.log.WithError(err).Warn("record last sync")
		}
		r.metrics.RecordSyncPhase("full", r.now().Sub(start))
		r.syncing.Store(false)
	}
	return r.status(ctx, online)
}

// Status reports the sync indicator without syncing.
func (r *Reconciler) Status(ctx context.Context) domain.SyncStatus {
	return r.status(ctx, r.policy.Online(ctx))
}

// IsSyncing reports whether a FullSync is in progress.
func (r *Reconciler) IsSyncing() bool {
	return r.syncing.Load()
}

// Pending lists the queued changes oldest first.
func (r *Reconciler) Pending(ctx context.Context) ([]domain.PendingChange, error) {
	return r.store.ListPending(ctx)
}

func (r *Reconciler) status(ctx context.Context, online bool) domain.SyncStatus {
	st := domain.SyncStatus{IsSyncing: r.syncing.Load(), IsOnline: online}

	if v, ok, err := r.store.GetSyncMeta(ctx, domain.MetaLastSynced); err != nil {
		r.log.WithError(err).Warn("read last sync")
	} else if ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			st.LastSynced = &t
		}
	}

	n, err := r.store.CountPending(ctx)
	if err != nil {
		r.log.WithError(err).Warn("count pending changes")
	}
	st.PendingChanges = n
	r.metrics.RecordPending(n)
	return st
}
