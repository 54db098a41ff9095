package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"lifesync/internal/domain"
)

var errNetwork = errors.New("dial tcp: connection refused")

type fakeMonitor struct {
	online atomic.Bool
}

func newMonitor(online bool) *fakeMonitor {
	m := &fakeMonitor{}
	m.online.Store(online)
	return m
}

func (m *fakeMonitor) IsOnline(context.Context) bool { return m.online.Load() }

// fakeGateway is an in-memory remote API. Fetches ignore the partition key
// and return everything held for the domain.
type fakeGateway struct {
	mu        sync.Mutex
	nutrition []domain.NutritionEntry
	fitness   []domain.FitnessEntry
	budget    []domain.BudgetEntry
	goals     []domain.Goal
	nextID    int

	fetchErr map[string]error
	replayFn func(domain.Request) error
	replayed []domain.Request

	goalFetches atomic.Int32
	// onFetchGoals runs before FetchGoals returns, outside the lock.
	onFetchGoals func()
}

func newGateway() *fakeGateway {
	return &fakeGateway{fetchErr: map[string]error{}}
}

func (g *fakeGateway) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s%d", prefix, g.nextID)
}

func (g *fakeGateway) err(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchErr[name]
}

func (g *fakeGateway) FetchNutritionDay(_ context.Context, date string) ([]domain.NutritionEntry, error) {
	if err := g.err("nutrition"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.NutritionEntry, len(g.nutrition))
	for i, e := range g.nutrition {
		e.Synced = true
		out[i] = e
	}
	return out, nil
}

func (g *fakeGateway) AddNutritionEntry(_ context.Context, e domain.NutritionEntry) (domain.NutritionEntry, error) {
	if err := g.err("write"); err != nil {
		return domain.NutritionEntry{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e.ID = g.id("n")
	e.Synced = true
	g.nutrition = append(g.nutrition, e)
	return e, nil
}

func (g *fakeGateway) DeleteNutritionEntry(_ context.Context, id, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.nutrition {
		if e.ID == id {
			g.nutrition = append(g.nutrition[:i], g.nutrition[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Status: 404, Message: "not found"}
}

func (g *fakeGateway) FetchFitnessWeek(_ context.Context, _ string) ([]domain.FitnessEntry, error) {
	if err := g.err("fitness"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.FitnessEntry, len(g.fitness))
	for i, e := range g.fitness {
		e.Synced = true
		out[i] = e
	}
	return out, nil
}

func (g *fakeGateway) AddFitnessEntry(_ context.Context, e domain.FitnessEntry) (domain.FitnessEntry, error) {
	if err := g.err("write"); err != nil {
		return domain.FitnessEntry{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e.ID = g.id("f")
	e.Synced = true
	g.fitness = append(g.fitness, e)
	return e, nil
}

func (g *fakeGateway) DeleteFitnessEntry(_ context.Context, id, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.fitness {
		if e.ID == id {
			g.fitness = append(g.fitness[:i], g.fitness[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Status: 404, Message: "not found"}
}

func (g *fakeGateway) FetchBudgetWeek(_ context.Context, _ string) ([]domain.BudgetEntry, error) {
	if err := g.err("budget"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.BudgetEntry, len(g.budget))
	for i, e := range g.budget {
		e.Synced = true
		out[i] = e
	}
	return out, nil
}

func (g *fakeGateway) AddBudgetEntry(_ context.Context, e domain.BudgetEntry) (domain.BudgetEntry, error) {
	if err := g.err("write"); err != nil {
		return domain.BudgetEntry{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e.ID = g.id("b")
	e.Synced = true
	g.budget = append(g.budget, e)
	return e, nil
}

func (g *fakeGateway) DeleteBudgetEntry(_ context.Context, id, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.budget {
		if e.ID == id {
			g.budget = append(g.budget[:i], g.budget[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Status: 404, Message: "not found"}
}

func (g *fakeGateway) FetchGoals(_ context.Context) ([]domain.Goal, error) {
	g.goalFetches.Add(1)
	if g.onFetchGoals != nil {
		g.onFetchGoals()
	}
	if err := g.err("goals"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Goal, len(g.goals))
	for i, x := range g.goals {
		x.Synced = true
		out[i] = x
	}
	return out, nil
}

func (g *fakeGateway) CreateGoal(_ context.Context, x domain.Goal) (domain.Goal, error) {
	if err := g.err("write"); err != nil {
		return domain.Goal{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	x.ID = g.id("g")
	x.Synced = true
	g.goals = append(g.goals, x)
	return x, nil
}

func (g *fakeGateway) UpdateGoal(_ context.Context, x domain.Goal) (domain.Goal, error) {
	if err := g.err("write"); err != nil {
		return domain.Goal{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.goals {
		if g.goals[i].ID == x.ID {
			x.Synced = true
			g.goals[i] = x
			return x, nil
		}
	}
	return domain.Goal{}, &domain.RemoteError{Status: 404, Message: "not found"}
}

func (g *fakeGateway) DeleteGoal(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.goals {
		if g.goals[i].ID == id {
			g.goals = append(g.goals[:i], g.goals[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Status: 404, Message: "not found"}
}

// Replay records r and applies it like the real API would.
func (g *fakeGateway) Replay(ctx context.Context, r domain.Request) error {
	g.mu.Lock()
	g.replayed = append(g.replayed, r)
	fn := g.replayFn
	g.mu.Unlock()
	if fn != nil {
		return fn(r)
	}

	op, err := domain.DecodeOperation(domain.PendingChange{Endpoint: r.Endpoint, Method: r.Method, Body: r.Body, Params: r.Params})
	if err != nil {
		return &domain.RemoteError{Status: 400, Message: err.Error()}
	}
	switch o := op.(type) {
	case domain.AddNutritionEntry:
		_, err = g.AddNutritionEntry(ctx, o.Entry)
	case domain.DeleteNutritionEntry:
		err = g.DeleteNutritionEntry(ctx, o.ID, o.Date)
	case domain.AddFitnessEntry:
		_, err = g.AddFitnessEntry(ctx, o.Entry)
	case domain.DeleteFitnessEntry:
		err = g.DeleteFitnessEntry(ctx, o.ID, o.Week)
	case domain.AddBudgetEntry:
		_, err = g.AddBudgetEntry(ctx, o.Entry)
	case domain.DeleteBudgetEntry:
		err = g.DeleteBudgetEntry(ctx, o.ID, o.Week)
	case domain.CreateGoal:
		_, err = g.CreateGoal(ctx, o.Goal)
	case domain.UpdateGoal:
		_, err = g.UpdateGoal(ctx, o.Goal)
	case domain.DeleteGoal:
		err = g.DeleteGoal(ctx, o.ID)
	}
	return err
}

func (g *fakeGateway) replayCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.replayed)
}

func (g *fakeGateway) setFetchErr(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchErr[name] = err
}

var _ domain.Gateway = (*fakeGateway)(nil)
