package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"lifesync/internal/domain"
)

// GoalService serves the goal list through the connectivity policy.
type GoalService struct {
	policy *ConnectivityPolicy
	cache  domain.GoalCache
	remote domain.GoalGateway
	log    logrus.FieldLogger
}

// NewGoalService creates a GoalService.
func NewGoalService(policy *ConnectivityPolicy, cache domain.GoalCache, remote domain.GoalGateway, log logrus.FieldLogger) *GoalService {
	return &GoalService{
		policy: policy,
		cache:  cache,
		remote: remote,
		log:    loggerOrDiscard(log).WithField("domain", "goals"),
	}
}

// List returns every goal. The boolean reports whether the list came from
// the local cache.
func (s *GoalService) List(ctx context.Context) ([]domain.Goal, bool) {
	goals, cached := ReadThrough(ctx, s.policy, goalsPartition, s.remote.FetchGoals, s.cache.CacheGoals, s.cache.CachedGoals)
	if goals == nil {
		goals = []domain.Goal{}
	}
	return goals, cached
}

// Create adds a goal.
func (s *GoalService) Create(ctx context.Context, g domain.Goal) (domain.Goal, WriteResult, error) {
	g.ID = ""
	if err := validate.Struct(g); err != nil {
		return domain.Goal{}, WriteResult{}, fmt.Errorf("invalid goal: %w", err)
	}

	created := g
	res, err := s.policy.Write(ctx, domain.CreateGoal{Goal: g}, func(ctx context.Context) error {
		var err error
		created, err = s.remote.CreateGoal(ctx, g)
		return err
	})
	if err != nil {
		return domain.Goal{}, WriteResult{}, err
	}
	if res.Queued {
		created.ID = localID(res.Change)
		created.Synced = false
	}
	s.apply(ctx, func(items []domain.Goal) []domain.Goal {
		return upsert(items, created, goalID)
	})
	return created, res, nil
}

// Update replaces goal g.ID.
func (s *GoalService) Update(ctx context.Context, g domain.Goal) (domain.Goal, WriteResult, error) {
	if g.ID == "" {
		return domain.Goal{}, WriteResult{}, fmt.Errorf("id is required")
	}
	if err := validate.Struct(g); err != nil {
		return domain.Goal{}, WriteResult{}, fmt.Errorf("invalid goal: %w", err)
	}

	// A goal still waiting to be created is revised in place.
	pending := g
	pending.ID = ""

	updated := g
	res, err := s.policy.Revise(ctx, g.ID, domain.CreateGoal{Goal: pending}, domain.UpdateGoal{Goal: g}, func(ctx context.Context) error {
		var err error
		updated, err = s.remote.UpdateGoal(ctx, g)
		return err
	})
	if err != nil {
		return domain.Goal{}, WriteResult{}, err
	}
	if res.Queued {
		updated.Synced = false
	}
	s.apply(ctx, func(items []domain.Goal) []domain.Goal {
		return upsert(items, updated, goalID)
	})
	return updated, res, nil
}

// Delete removes goal id.
func (s *GoalService) Delete(ctx context.Context, id string) (WriteResult, error) {
	if id == "" {
		return WriteResult{}, fmt.Errorf("id is required")
	}
	res, err := s.policy.Remove(ctx, id, domain.CreateGoal{}, domain.DeleteGoal{ID: id}, func(ctx context.Context) error {
		return s.remote.DeleteGoal(ctx, id)
	})
	if err != nil {
		return WriteResult{}, err
	}
	s.apply(ctx, func(items []domain.Goal) []domain.Goal {
		return remove(items, id, goalID)
	})
	return res, nil
}

func (s *GoalService) apply(ctx context.Context, fn func([]domain.Goal) []domain.Goal) {
	updatePartition(ctx, s.policy, goalsPartition, s.log, s.cache.CachedGoals, s.cache.CacheGoals, fn)
}

func goalID(g domain.Goal) string { return g.ID }
