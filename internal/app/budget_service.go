package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
)

// BudgetService serves budget weeks through the connectivity policy.
type BudgetService struct {
	policy *ConnectivityPolicy
	cache  domain.BudgetCache
	remote domain.BudgetGateway
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewBudgetService creates a BudgetService.
func NewBudgetService(policy *ConnectivityPolicy, cache domain.BudgetCache, remote domain.BudgetGateway, log logrus.FieldLogger) *BudgetService {
	return &BudgetService{
		policy: policy,
		cache:  cache,
		remote: remote,
		log:    loggerOrDiscard(log).WithField("domain", "budget"),
		now:    time.Now,
	}
}

// Week returns the entries and totals of week. An unparseable key means the
// current week.
func (s *BudgetService) Week(ctx context.Context, week string) domain.BudgetWeek {
	week = domain.WeekKey(domain.ParseWeekKey(week))

	entries, cached := ReadThrough(ctx, s.policy, budgetPartition(week),
		func(ctx context.Context) ([]domain.BudgetEntry, error) {
			return s.remote.FetchBudgetWeek(ctx, week)
		},
		func(ctx context.Context, v []domain.BudgetEntry) error {
			return s.cache.CacheBudgetWeek(ctx, week, v)
		},
		func(ctx context.Context) ([]domain.BudgetEntry, bool, error) {
			return s.cache.CachedBudgetWeek(ctx, week)
		},
	)
	bw := domain.AggregateBudgetWeek(week, entries)
	bw.Cached = cached
	return bw
}

// AddEntry logs e. An empty date means today and an empty kind an expense.
func (s *BudgetService) AddEntry(ctx context.Context, e domain.BudgetEntry) (domain.BudgetEntry, WriteResult, error) {
	if e.Date == "" {
		e.Date = domain.DayKey(s.now())
	}
	if e.Kind == "" {
		e.Kind = domain.BudgetExpense
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = s.now().UTC()
	}
	e.ID = ""
	if err := validate.Struct(e); err != nil {
		return domain.BudgetEntry{}, WriteResult{}, fmt.Errorf("invalid budget entry: %w", err)
	}
	day, _ := domain.ParseDayKey(e.Date)
	week := domain.WeekKey(day)

	created := e
	res, err := s.policy.Write(ctx, domain.AddBudgetEntry{Entry: e}, func(ctx context.Context) error {
		var err error
		created, err = s.remote.AddBudgetEntry(ctx, e)
		return err
	})
	if err != nil {
		return domain.BudgetEntry{}, WriteResult{}, err
	}
	if res.Queued {
		created.ID = localID(res.Change)
		created.Synced = false
	}
	s.apply(ctx, week, func(items []domain.BudgetEntry) []domain.BudgetEntry {
		return upsert(items, created, budgetID)
	})
	return created, res, nil
}

// DeleteEntry removes entry id from week.
func (s *BudgetService) DeleteEntry(ctx context.Context, id, week string) (WriteResult, error) {
	if id == "" {
		return WriteResult{}, fmt.Errorf("id is required")
	}
	week = domain.WeekKey(domain.ParseWeekKey(week))
	res, err := s.policy.Remove(ctx, id, domain.AddBudgetEntry{}, domain.DeleteBudgetEntry{ID: id, Week: week}, func(ctx context.Context) error {
		return s.remote.DeleteBudgetEntry(ctx, id, week)
	})
	if err != nil {
		return WriteResult{}, err
	}
	s.apply(ctx, week, func(items []domain.BudgetEntry) []domain.BudgetEntry {
		return remove(items, id, budgetID)
	})
	return res, nil
}

func (s *BudgetService) apply(ctx context.Context, week string, fn func([]domain.BudgetEntry) []domain.BudgetEntry) {
	updatePartition(ctx, s.policy, budgetPartition(week), s.log,
		func(ctx context.Context) ([]domain.BudgetEntry, bool, error) {
			return s.cache.CachedBudgetWeek(ctx, week)
		},
		func(ctx context.Context, v []domain.BudgetEntry) error {
			return s.cache.CacheBudgetWeek(ctx, week, v)
		},
		fn,
	)
}

func budgetID(e domain.BudgetEntry) string { return e.ID }
