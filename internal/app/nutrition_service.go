package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
)

// NutritionService serves nutrition days through the connectivity policy.
type NutritionService struct {
	policy *ConnectivityPolicy
	cache  domain.NutritionCache
	remote domain.NutritionGateway
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewNutritionService creates a NutritionService.
func NewNutritionService(policy *ConnectivityPolicy, cache domain.NutritionCache, remote domain.NutritionGateway, log logrus.FieldLogger) *NutritionService {
	return &NutritionService{
		policy: policy,
		cache:  cache,
		remote: remote,
		log:    loggerOrDiscard(log).WithField("domain", "nutrition"),
		now:    time.Now,
	}
}

// Day returns the entries and totals of date (YYYY-MM-DD).
func (s *NutritionService) Day(ctx context.Context, date string) (domain.NutritionDay, error) {
	if _, err := domain.ParseDayKey(date); err != nil {
		return domain.NutritionDay{}, err
	}

	entries, cached := ReadThrough(ctx, s.policy, nutritionPartition(date),
		func(ctx context.Context) ([]domain.NutritionEntry, error) {
			return s.remote.FetchNutritionDay(ctx, date)
		},
		func(ctx context.Context, v []domain.NutritionEntry) error {
			return s.cache.CacheNutritionDay(ctx, date, v)
		},
		func(ctx context.Context) ([]domain.NutritionEntry, bool, error) {
			return s.cache.CachedNutritionDay(ctx, date)
		},
	)
	day := domain.AggregateNutritionDay(date, entries)
	day.Cached = cached
	return day, nil
}

// AddEntry logs e. An empty date means today.
func (s *NutritionService) AddEntry(ctx context.Context, e domain.NutritionEntry) (domain.NutritionEntry, WriteResult, error) {
	if e.Date == "" {
		e.Date = domain.DayKey(s.now())
	}
	if e.LoggedAt.IsZero() {
		e.LoggedAt = s.now().UTC()
	}
	e.ID = ""
	if err := validate.Struct(e); err != nil {
		return domain.NutritionEntry{}, WriteResult{}, fmt.Errorf("invalid nutrition entry: %w", err)
	}

	created := e
	res, err := s.policy.Write(ctx, domain.AddNutritionEntry{Entry: e}, func(ctx context.Context) error {
		var err error
		created, err = s.remote.AddNutritionEntry(ctx, e)
		return err
	})
	if err != nil {
		return domain.NutritionEntry{}, WriteResult{}, err
	}
	if res.Queued {
		created.ID = localID(res.Change)
		created.Synced = false
	}
	s.apply(ctx, created.Date, func(items []domain.NutritionEntry) []domain.NutritionEntry {
		return upsert(items, created, nutritionID)
	})
	return created, res, nil
}

// DeleteEntry removes entry id logged on date.
func (s *NutritionService) DeleteEntry(ctx context.Context, id, date string) (WriteResult, error) {
	if id == "" {
		return WriteResult{}, fmt.Errorf("id is required")
	}
	if _, err := domain.ParseDayKey(date); err != nil {
		return WriteResult{}, err
	}
	res, err := s.policy.Remove(ctx, id, domain.AddNutritionEntry{}, domain.DeleteNutritionEntry{ID: id, Date: date}, func(ctx context.Context) error {
		return s.remote.DeleteNutritionEntry(ctx, id, date)
	})
	if err != nil {
		return WriteResult{}, err
	}
	s.apply(ctx, date, func(items []domain.NutritionEntry) []domain.NutritionEntry {
		return remove(items, id, nutritionID)
	})
	return res, nil
}

func (s *NutritionService) apply(ctx context.Context, date string, fn func([]domain.NutritionEntry) []domain.NutritionEntry) {
	updatePartition(ctx, s.policy, nutritionPartition(date), s.log,
		func(ctx context.Context) ([]domain.NutritionEntry, bool, error) {
			return s.cache.CachedNutritionDay(ctx, date)
		},
		func(ctx context.Context, v []domain.NutritionEntry) error {
			return s.cache.CacheNutritionDay(ctx, date, v)
		},
		fn,
	)
}

func nutritionID(e domain.NutritionEntry) string { return e.ID }
