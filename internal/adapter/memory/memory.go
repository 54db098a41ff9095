// Package memory implements an in-memory cache store for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lifesync/internal/domain"
)

// DB implements an in-memory cache store.
type DB struct {
	mu        sync.Mutex
	nutrition map[string][]domain.NutritionEntry
	fitness   map[string][]domain.FitnessEntry
	budget    map[string][]domain.BudgetEntry
	goals     []domain.Goal
	goalsSet  bool
	pending   []domain.PendingChange
	claimed   map[string]bool
	meta      map[string]string

	pendingIDCounter int64
	lastCreatedAt    time.Time

	// Now stamps queued changes. Defaults to time.Now.
	Now func() time.Time
}

// New creates a new in-memory cache store.
func New() *DB {
	return &DB{
		nutrition: make(map[string][]domain.NutritionEntry),
		fitness:   make(map[string][]domain.FitnessEntry),
		budget:    make(map[string][]domain.BudgetEntry),
		claimed:   make(map[string]bool),
		meta:      make(map[string]string),
		Now:       time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.CacheStore = (*DB)(nil)

// --- NutritionCache ---

func (db *DB) CacheNutritionDay(ctx context.Context, date string, entries []domain.NutritionEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.NutritionEntry, len(entries))
	for i, e := range entries {
		e.Date = date
		out[i] = e
	}
	for k, list := range db.nutrition {
		if k != date {
			db.nutrition[k] = withoutIDs(list, out, func(e domain.NutritionEntry) string { return e.ID })
		}
	}
	db.nutrition[date] = out
	return nil
}

func (db *DB) CachedNutritionDay(ctx context.Context, date string) ([]domain.NutritionEntry, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	list, ok := db.nutrition[date]
	return append([]domain.NutritionEntry(nil), list...), ok, nil
}

// --- FitnessCache ---

func (db *DB) CacheFitnessWeek(ctx context.Context, week string, entries []domain.FitnessEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := append([]domain.FitnessEntry(nil), entries...)
	for k, list := range db.fitness {
		if k != week {
			db.fitness[k] = withoutIDs(list, out, func(e domain.FitnessEntry) string { return e.ID })
		}
	}
	db.fitness[week] = out
	return nil
}

func (db *DB) CachedFitnessWeek(ctx context.Context, week string) ([]domain.FitnessEntry, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	list, ok := db.fitness[week]
	return append([]domain.FitnessEntry(nil), list...), ok, nil
}

// --- BudgetCache ---

func (db *DB) CacheBudgetWeek(ctx context.Context, week string, entries []domain.BudgetEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := append([]domain.BudgetEntry(nil), entries...)
	for k, list := range db.budget {
		if k != week {
			db.budget[k] = withoutIDs(list, out, func(e domain.BudgetEntry) string { return e.ID })
		}
	}
	db.budget[week] = out
	return nil
}

func (db *DB) CachedBudgetWeek(ctx context.Context, week string) ([]domain.BudgetEntry, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	list, ok := db.budget[week]
	return append([]domain.BudgetEntry(nil), list...), ok, nil
}

// --- GoalCache ---

func (db *DB) CacheGoals(ctx context.Context, goals []domain.Goal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.goals = append([]domain.Goal(nil), goals...)
	db.goalsSet = true
	return nil
}

func (db *DB) CachedGoals(ctx context.Context) ([]domain.Goal, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := append([]domain.Goal(nil), db.goals...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, db.goalsSet, nil
}

// --- PendingQueue ---

func (db *DB) Enqueue(ctx context.Context, change domain.PendingChange) (domain.PendingChange, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.Now().UTC()
	if now.Before(db.lastCreatedAt) {
		now = db.lastCreatedAt
	}
	db.lastCreatedAt = now

	db.pendingIDCounter++
	change.ID = fmt.Sprintf("%020d", db.pendingIDCounter)
	change.CreatedAt = now
	db.pending = append(db.pending, change)
	return change, nil
}

func (db *DB) Coalesce(ctx context.Context, change domain.PendingChange) (domain.PendingChange, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, c := range db.pending {
		if c.Endpoint == change.Endpoint && c.Method == change.Method && !db.claimed[c.ID] {
			db.pending[i].Body = change.Body
			db.pending[i].Params = change.Params
			return db.pending[i], true, nil
		}
	}
	return domain.PendingChange{}, false, nil
}

// unclaimed returns the index of change.ID when it is queued, unclaimed and
// has the same method and endpoint, or -1.
func (db *DB) unclaimed(change domain.PendingChange) int {
	for i, c := range db.pending {
		if c.ID == change.ID {
			if db.claimed[c.ID] || c.Endpoint != change.Endpoint || c.Method != change.Method {
				return -1
			}
			return i
		}
	}
	return -1
}

func (db *DB) ClaimPending(ctx context.Context, id string) (domain.PendingChange, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.claimed[id] {
		return domain.PendingChange{}, false, nil
	}
	for _, c := range db.pending {
		if c.ID == id {
			db.claimed[id] = true
			return c, true, nil
		}
	}
	return domain.PendingChange{}, false, nil
}

func (db *DB) ReleasePending(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.claimed, id)
	return nil
}

func (db *DB) ReplacePending(ctx context.Context, change domain.PendingChange) (domain.PendingChange, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.unclaimed(change)
	if i < 0 {
		return domain.PendingChange{}, false, nil
	}
	db.pending[i].Body = change.Body
	db.pending[i].Params = change.Params
	return db.pending[i], true, nil
}

func (db *DB) DiscardPending(ctx context.Context, change domain.PendingChange) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.unclaimed(change)
	if i < 0 {
		return false, nil
	}
	db.pending = append(db.pending[:i], db.pending[i+1:]...)
	return true, nil
}

func (db *DB) ListPending(ctx context.Context) ([]domain.PendingChange, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return append([]domain.PendingChange(nil), db.pending...), nil
}

func (db *DB) RemovePending(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.claimed, id)
	for i, c := range db.pending {
		if c.ID == id {
			db.pending = append(db.pending[:i], db.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (db *DB) CountPending(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.pending), nil
}

// --- SyncMetaStore ---

func (db *DB) GetSyncMeta(ctx context.Context, key string) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	v, ok := db.meta[key]
	return v, ok, nil
}

func (db *DB) SetSyncMeta(ctx context.Context, key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.meta[key] = value
	return nil
}

// Clear drops everything.
func (db *DB) Clear(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nutrition = make(map[string][]domain.NutritionEntry)
	db.fitness = make(map[string][]domain.FitnessEntry)
	db.budget = make(map[string][]domain.BudgetEntry)
	db.goals, db.goalsSet = nil, false
	db.pending = nil
	db.claimed = make(map[string]bool)
	db.meta = make(map[string]string)
	return nil
}

func (db *DB) Close() error { return nil }

// withoutIDs drops from list every entry whose id appears in moved.
func withoutIDs[T any](list, moved []T, id func(T) string) []T {
	if len(moved) == 0 {
		return list
	}
	ids := make(map[string]bool, len(moved))
	for _, m := range moved {
		ids[id(m)] = true
	}
	out := list[:0]
	for _, e := range list {
		if !ids[id(e)] {
			out = append(out, e)
		}
	}
	return out
}
