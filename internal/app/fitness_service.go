package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
)

// FitnessService serves fitness weeks through the connectivity policy.
type FitnessService struct {
	policy *ConnectivityPolicy
	cache  domain.FitnessCache
	remote domain.FitnessGateway
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewFitnessService creates a FitnessService.
func NewFitnessService(policy *ConnectivityPolicy, cache domain.FitnessCache, remote domain.FitnessGateway, log logrus.FieldLogger) *FitnessService {
	return &FitnessService{
		policy: policy,
		cache:  cache,
		remote: remote,
		log:    loggerOrDiscard(log).WithField("domain", "fitness"),
		now:    time.Now,
	}
}

// Week returns the entries and aggregates of week. An unparseable key means
// the current week.
func (s *FitnessService) Week(ctx context.Context, week string) domain.FitnessWeek {
	week = domain.WeekKey(domain.ParseWeekKey(week))

	entries, cached := ReadThrough(ctx, s.policy, fitnessPartition(week),
		func(ctx context.Context) ([]domain.FitnessEntry, error) {
			return s.remote.FetchFitnessWeek(ctx, week)
		},
		func(ctx context.Context, v []domain.FitnessEntry) error {
			return s.cache.CacheFitnessWeek(ctx, week, v)
		},
		func(ctx context.Context) ([]domain.FitnessEntry, bool, error) {
			return s.cache.CachedFitnessWeek(ctx, week)
		},
	)
	fw := domain.AggregateFitnessWeek(week, entries)
	fw.Cached = cached
	return fw
}

// AddEntry logs e. An empty date means today.
func (s *FitnessService) AddEntry(ctx context.Context, e domain.FitnessEntry) (domain.FitnessEntry, WriteResult, error) {
	if e.Date == "" {
		e.Date = domain.DayKey(s.now())
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = s.now().UTC()
	}
	e.ID = ""
	if err := validate.Struct(e); err != nil {
		return domain.FitnessEntry{}, WriteResult{}, fmt.Errorf("invalid fitness entry: %w", err)
	}
	day, _ := domain.ParseDayKey(e.Date)
	week := domain.WeekKey(day)

	created := e
	res, err := s.policy.Write(ctx, domain.AddFitnessEntry{Entry: e}, func(ctx context.Context) error {
		var err error
		created, err = s.remote.AddFitnessEntry(ctx, e)
		return err
	})
	if err != nil {
		return domain.FitnessEntry{}, WriteResult{}, err
	}
	if res.Queued {
		created.ID = localID(res.Change)
		created.Synced = false
	}
	s.apply(ctx, week, func(items []domain.FitnessEntry) []domain.FitnessEntry {
		return upsert(items, created, fitnessID)
	})
	return created, res, nil
}

// DeleteEntry removes entry id from week.
func (s *FitnessService) DeleteEntry(ctx context.Context, id, week string) (WriteResult, error) {
	if id == "" {
		return WriteResult{}, fmt.Errorf("id is required")
	}
	week = domain.WeekKey(domain.ParseWeekKey(week))
	res, err := s.policy.Remove(ctx, id, domain.AddFitnessEntry{}, domain.DeleteFitnessEntry{ID: id, Week: week}, func(ctx context.Context) error {
		return s.remote.DeleteFitnessEntry(ctx, id, week)
	})
	if err != nil {
		return WriteResult{}, err
	}
	s.apply(ctx, week, func(items []domain.FitnessEntry) []domain.FitnessEntry {
		return remove(items, id, fitnessID)
	})
	return res, nil
}

func (s *FitnessService) apply(ctx context.Context, week string, fn func([]domain.FitnessEntry) []domain.FitnessEntry) {
	updatePartition(ctx, s.policy, fitnessPartition(week), s.log,
		func(ctx context.Context) ([]domain.FitnessEntry, bool, error) {
			return s.cache.CachedFitnessWeek(ctx, week)
		},
		func(ctx context.Context, v []domain.FitnessEntry) error {
			return s.cache.CacheFitnessWeek(ctx, week, v)
		},
		fn,
	)
}

func fitnessID(e domain.FitnessEntry) string { return e.ID }
