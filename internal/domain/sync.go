package domain

import (
	"context"
	"time"
)

// Sync metadata keys.
const (
	MetaLastSynced   = "lastSynced"
	MetaLastFullSync = "lastFullSync"
)

// SyncStatus is the sync indicator shown by the UI.
type SyncStatus struct {
	LastSynced     *time.Time `json:"lastSynced"`
	IsSyncing      bool       `json:"isSyncing"`
	IsOnline       bool       `json:"isOnline"`
	PendingChanges int        `json:"pendingChanges"`
}

// ConnectivityMonitor reports network reachability of the remote API. It
// never fails: an inconclusive probe reports offline.
type ConnectivityMonitor interface {
	IsOnline(ctx context.Context) bool
}

// NutritionCache stores nutrition entries partitioned by date.
type NutritionCache interface {
	CacheNutritionDay(ctx context.Context, date string, entries []NutritionEntry) error
	CachedNutritionDay(ctx context.Context, date string) ([]NutritionEntry, bool, error)
}

// FitnessCache stores fitness entries partitioned by ISO week.
type FitnessCache interface {
	CacheFitnessWeek(ctx context.Context, week string, entries []FitnessEntry) error
	CachedFitnessWeek(ctx context.Context, week string) ([]FitnessEntry, bool, error)
}

// BudgetCache stores budget entries partitioned by ISO week.
type BudgetCache interface {
	CacheBudgetWeek(ctx context.Context, week string, entries []BudgetEntry) error
	CachedBudgetWeek(ctx context.Context, week string) ([]BudgetEntry, bool, error)
}

// GoalCache stores the full goal list.
type GoalCache interface {
	CacheGoals(ctx context.Context, goals []Goal) error
	CachedGoals(ctx context.Context) ([]Goal, bool, error)
}

// PendingQueue is the durable FIFO of deferred mutations.
type PendingQueue interface {
	// Enqueue appends change, assigning its ID and CreatedAt.
	Enqueue(ctx context.Context, change PendingChange) (PendingChange, error)
	// Coalesce folds change into an already queued, unclaimed change with
	// the same method and endpoint, replacing its body and params. It
	// reports false when no such change is queued.
	Coalesce(ctx context.Context, change PendingChange) (PendingChange, bool, error)
	// ListPending returns all queued changes in insertion order.
	ListPending(ctx context.Context) ([]PendingChange, error)
	// ClaimPending marks change id as being replayed and returns its
	// current content. A claimed change is never rewritten or discarded
	// until RemovePending or ReleasePending. It reports false when id is
	// no longer queued or is already claimed.
	ClaimPending(ctx context.Context, id string) (PendingChange, bool, error)
	ReleasePending(ctx context.Context, id string) error
	// ReplacePending rewrites the body and params of the unclaimed change
	// change.ID, provided its method and endpoint match.
	ReplacePending(ctx context.Context, change PendingChange) (PendingChange, bool, error)
	// DiscardPending deletes the unclaimed change change.ID, provided its
	// method and endpoint match.
	DiscardPending(ctx context.Context, change PendingChange) (bool, error)
	RemovePending(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int, error)
}

// SyncMetaStore is a flat key/value table holding the latest value per key.
type SyncMetaStore interface {
	GetSyncMeta(ctx context.Context, key string) (string, bool, error)
	SetSyncMeta(ctx context.Context, key, value string) error
}

// CacheStore is the local embedded store.
type CacheStore interface {
	NutritionCache
	FitnessCache
	BudgetCache
	GoalCache
	PendingQueue
	SyncMetaStore
	// Clear drops every cached entity, queued change and meta value.
	Clear(ctx context.Context) error
	Close() error
}

// NutritionGateway is the remote nutrition API.
type NutritionGateway interface {
	FetchNutritionDay(ctx context.Context, date string) ([]NutritionEntry, error)
	AddNutritionEntry(ctx context.Context, e NutritionEntry) (NutritionEntry, error)
	DeleteNutritionEntry(ctx context.Context, id, date string) error
}

// FitnessGateway is the remote fitness API.
type FitnessGateway interface {
	FetchFitnessWeek(ctx context.Context, week string) ([]FitnessEntry, error)
	AddFitnessEntry(ctx context.Context, e FitnessEntry) (FitnessEntry, error)
	DeleteFitnessEntry(ctx context.Context, id, week string) error
}

// BudgetGateway is the remote budget API.
type BudgetGateway interface {
	FetchBudgetWeek(ctx context.Context, week string) ([]BudgetEntry, error)
	AddBudgetEntry(ctx context.Context, e BudgetEntry) (BudgetEntry, error)
	DeleteBudgetEntry(ctx context.Context, id, week string) error
}

// GoalGateway is the remote goals API.
type GoalGateway interface {
	FetchGoals(ctx context.Context) ([]Goal, error)
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	UpdateGoal(ctx context.Context, g Goal) (Goal, error)
	DeleteGoal(ctx context.Context, id string) error
}

// Replayer issues a recorded request against the remote API. A non-2xx
// response is returned as *RemoteError; any other error is a transport
// failure.
type Replayer interface {
	Replay(ctx context.Context, r Request) error
}

// Gateway is the authoritative remote API.
type Gateway interface {
	NutritionGateway
	FitnessGateway
	BudgetGateway
	GoalGateway
	Replayer
}
