package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
	"lifesync/internal/metrics"
)

var validate = validator.New()

// PolicyOptions tunes how writes behave without connectivity.
type PolicyOptions struct {
	// QueueOfflineWrites defers offline writes to the pending queue instead
	// of failing them with domain.ErrOffline.
	QueueOfflineWrites bool
	// CoalesceIdempotent folds a DELETE or PUT into an identical queued
	// request rather than queueing it twice.
	CoalesceIdempotent bool
}

// DefaultPolicyOptions returns the options used when none are configured.
func DefaultPolicyOptions() PolicyOptions {
	return PolicyOptions{QueueOfflineWrites: true, CoalesceIdempotent: true}
}

// WriteResult describes where a write went.
type WriteResult struct {
	// Queued is set when the write was deferred to the pending queue and
	// applied to the local cache only.
	Queued bool `json:"queued"`
	// Coalesced is set when the write was folded into a queued change.
	Coalesced bool `json:"coalesced,omitempty"`
	// Discarded is set when the write cancelled a queued create that never
	// reached the remote.
	Discarded bool                  `json:"discarded,omitempty"`
	Change    *domain.PendingChange `json:"change,omitempty"`
}

// localPrefix marks ids minted for creates still waiting in the queue. The
// rest of the id is the queued change's id.
const localPrefix = "local-"

func localID(change *domain.PendingChange) string {
	return localPrefix + change.ID
}

// queuedCreate returns the pending change id behind a local id.
func queuedCreate(id string) (string, bool) {
	changeID, ok := strings.CutPrefix(id, localPrefix)
	return changeID, ok && changeID != ""
}

// partitionLocks hands out one mutex per cache partition so that a
// load-modify-save of a partition never interleaves with another write to it.
type partitionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *partitionLocks) lock(key string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Partition keys.
func nutritionPartition(date string) string { return "nutrition/" + date }
func fitnessPartition(week string) string   { return "fitness/" + week }
func budgetPartition(week string) string    { return "budget/" + week }

const goalsPartition = "goals"

// ConnectivityPolicy is the single place deciding between the remote API and
// the local cache. Every domain service reads and writes through it.
type ConnectivityPolicy struct {
	monitor domain.ConnectivityMonitor
	queue   domain.PendingQueue
	opts    PolicyOptions
	log     logrus.FieldLogger
	metrics *metrics.Collector
	parts   partitionLocks
}

// NewConnectivityPolicy creates a policy. log and m may be nil.
func NewConnectivityPolicy(monitor domain.ConnectivityMonitor, queue domain.PendingQueue, opts PolicyOptions, log logrus.FieldLogger, m *metrics.Collector) *ConnectivityPolicy {
	return &ConnectivityPolicy{
		monitor: monitor,
		queue:   queue,
		opts:    opts,
		log:     loggerOrDiscard(log),
		metrics: m,
	}
}

// Online reports the current connectivity.
func (p *ConnectivityPolicy) Online(ctx context.Context) bool {
	return p.monitor.IsOnline(ctx)
}

// lockPartition blocks until the caller owns partition key.
func (p *ConnectivityPolicy) lockPartition(key string) (unlock func()) {
	return p.parts.lock(key)
}

// ReadThrough serves a partition. Online, fetch wins and its result is
// mirrored into the cache. Offline, or when fetch fails, the cached
// partition is returned; a miss yields the zero value. The boolean reports
// whether the value came from the cache. Store failures only ever degrade
// to a miss. name is the partition key.
func ReadThrough[T any](
	ctx context.Context,
	p *ConnectivityPolicy,
	name string,
	fetch func(context.Context) (T, error),
	store func(context.Context, T) error,
	cached func(context.Context) (T, bool, error),
) (T, bool) {
	log := p.log.WithField("partition", name)

	if p.monitor.IsOnline(ctx) {
		v, err := fetch(ctx)
		if err == nil {
			unlock := p.lockPartition(name)
			if err := store(ctx, v); err != nil {
				log.WithError(err).Warn("cache write failed")
			}
			unlock()
			return v, false
		}
		log.WithError(err).Warn("remote read failed, serving cache")
	}

	v, found, err := cached(ctx)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
		var zero T
		return zero, true
	}
	if !found {
		log.Debug("cache miss")
	}
	return v, true
}

// Write runs remote when online. Offline, op is deferred to the pending
// queue, or rejected with domain.ErrOffline when queueing is disabled.
// Online failures are returned as is and never queued.
func (p *ConnectivityPolicy) Write(ctx context.Context, op domain.Operation, remote func(context.Context) error) (WriteResult, error) {
	if p.monitor.IsOnline(ctx) {
		return WriteResult{}, remote(ctx)
	}
	if !p.opts.QueueOfflineWrites {
		return WriteResult{}, domain.ErrOffline
	}
	return p.Defer(ctx, op)
}

// Defer records op in the pending queue.
func (p *ConnectivityPolicy) Defer(ctx context.Context, op domain.Operation) (WriteResult, error) {
	change := domain.NewPendingChange(op)
	log := p.log.WithFields(logrus.Fields{"op": op.Kind(), "endpoint": change.Endpoint})

	if p.opts.CoalesceIdempotent && change.Request().Idempotent() {
		merged, ok, err := p.queue.Coalesce(ctx, change)
		if err != nil {
			return WriteResult{}, fmt.Errorf("queue %s: %w", op.Kind(), err)
		}
		if ok {
			log.WithField("change_id", merged.ID).Info("coalesced into queued change")
			p.metrics.RecordEnqueue(string(op.Kind()), "coalesced")
			return WriteResult{Queued: true, Coalesced: true, Change: &merged}, nil
		}
	}

	queued, err := p.queue.Enqueue(ctx, change)
	if err != nil {
		return WriteResult{}, fmt.Errorf("queue %s: %w", op.Kind(), err)
	}
	log.WithField("change_id", queued.ID).Info("queued for sync")
	p.metrics.RecordEnqueue(string(op.Kind()), "queued")
	return WriteResult{Queued: true, Change: &queued}, nil
}

// Remove runs a delete. When id names an offline create that is still queued
// and not being replayed, that create is discarded and neither remote nor the
// queue sees the delete. create must carry the create's method and endpoint.
// Any other id goes through Write.
func (p *ConnectivityPolicy) Remove(ctx context.Context, id string, create, op domain.Operation, remote func(context.Context) error) (WriteResult, error) {
	if changeID, ok := queuedCreate(id); ok {
		target := domain.NewPendingChange(create)
		target.ID = changeID
		discarded, err := p.queue.DiscardPending(ctx, target)
		if err != nil {
			return WriteResult{}, fmt.Errorf("discard %s: %w", create.Kind(), err)
		}
		if discarded {
			p.log.WithFields(logrus.Fields{"op": op.Kind(), "change_id": changeID}).Info("discarded queued create")
			p.metrics.RecordEnqueue(string(op.Kind()), "discarded")
			return WriteResult{Discarded: true}, nil
		}
	}
	return p.Write(ctx, op, remote)
}

// Revise runs an update. When id names an offline create that is still
// queued, the create is rewritten with create's body instead, so the entity
// reaches the remote once with its latest content.
func (p *ConnectivityPolicy) Revise(ctx context.Context, id string, create, op domain.Operation, remote func(context.Context) error) (WriteResult, error) {
	if changeID, ok := queuedCreate(id); ok {
		target := domain.NewPendingChange(create)
		target.ID = changeID
		merged, replaced, err := p.queue.ReplacePending(ctx, target)
		if err != nil {
			return WriteResult{}, fmt.Errorf("revise %s: %w", create.Kind(), err)
		}
		if replaced {
			p.log.WithFields(logrus.Fields{"op": op.Kind(), "change_id": changeID}).Info("revised queued create")
			p.metrics.RecordEnqueue(string(op.Kind()), "coalesced")
			return WriteResult{Queued: true, Coalesced: true, Change: &merged}, nil
		}
	}
	return p.Write(ctx, op, remote)
}

// updatePartition applies fn to the cached partition key and stores the
// result while holding the partition lock. It is best effort: failures are
// logged and otherwise ignored.
func updatePartition[T any](
	ctx context.Context,
	p *ConnectivityPolicy,
	key string,
	log logrus.FieldLogger,
	load func(context.Context) ([]T, bool, error),
	save func(context.Context, []T) error,
	fn func([]T) []T,
) {
	log = log.WithField("partition", key)
	unlock := p.lockPartition(key)
	defer unlock()

	items, _, err := load(ctx)
	if err != nil {
		log.WithError(err).Warn("cache read failed")
		return
	}
	if err := save(ctx, fn(items)); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
}

// upsert replaces the item with the same id or appends it.
func upsert[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	replaced := false
	for _, it := range items {
		if id(it) == id(item) {
			out = append(out, item)
			replaced = true
			continue
		}
		out = append(out, it)
	}
	if !replaced {
		out = append(out, item)
	}
	return out
}

func remove[T any](items []T, removeID string, id func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if id(it) != removeID {
			out = append(out, it)
		}
	}
	return out
}

func loggerOrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	d := logrus.New()
	d.SetOutput(io.Discard)
	return d
}
