package memory

import (
	"context"
	"testing"
	"time"

	"lifesync/internal/domain"
)

func TestNutritionCache(t *testing.T) {
	db := New()
	ctx := context.Background()

	if _, found, _ := db.CachedNutritionDay(ctx, "2026-01-05"); found {
		t.Fatal("expected miss for uncached day")
	}

	if err := db.CacheNutritionDay(ctx, "2026-01-05", []domain.NutritionEntry{{ID: "n1", Name: "Eggs"}}); err != nil {
		t.Fatalf("CacheNutritionDay: %v", err)
	}
	got, found, err := db.CachedNutritionDay(ctx, "2026-01-05")
	if err != nil || !found {
		t.Fatalf("CachedNutritionDay: found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0].Date != "2026-01-05" {
		t.Errorf("unexpected entries: %+v", got)
	}

	// Mutating the result must not touch the cache.
	got[0].Name = "changed"
	again, _, _ := db.CachedNutritionDay(ctx, "2026-01-05")
	if again[0].Name != "Eggs" {
		t.Error("cache aliased the returned slice")
	}
}

func TestEntryMovesBetweenWeeks(t *testing.T) {
	db := New()
	ctx := context.Background()

	_ = db.CacheFitnessWeek(ctx, "2026-W02", []domain.FitnessEntry{{ID: "a"}, {ID: "b"}})
	_ = db.CacheFitnessWeek(ctx, "2026-W03", []domain.FitnessEntry{{ID: "b"}})

	w2, found, _ := db.CachedFitnessWeek(ctx, "2026-W02")
	if !found || len(w2) != 1 || w2[0].ID != "a" {
		t.Errorf("expected only a in W02, got %+v", w2)
	}
}

func TestEmptyWeekIsCached(t *testing.T) {
	db := New()
	ctx := context.Background()

	_ = db.CacheBudgetWeek(ctx, "2026-W02", nil)
	if _, found, _ := db.CachedBudgetWeek(ctx, "2026-W02"); !found {
		t.Error("expected empty week to count as cached")
	}
	if _, found, _ := db.CachedGoals(ctx); found {
		t.Error("expected goals miss before first cache")
	}
	_ = db.CacheGoals(ctx, nil)
	if _, found, _ := db.CachedGoals(ctx); !found {
		t.Error("expected empty goal list to count as cached")
	}
}

func TestPendingQueue(t *testing.T) {
	db := New()
	ctx := context.Background()

	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute)}
	db.Now = func() time.Time {
		now := clock[0]
		clock = clock[1:]
		return now
	}

	a, _ := db.Enqueue(ctx, domain.NewPendingChange(domain.DeleteGoal{ID: "g1"}))
	b, _ := db.Enqueue(ctx, domain.NewPendingChange(domain.UpdateGoal{Goal: domain.Goal{ID: "g2", Title: "v1"}}))
	if b.CreatedAt.Before(a.CreatedAt) {
		t.Error("created_at went backwards")
	}
	if a.ID >= b.ID {
		t.Errorf("ids not increasing: %s >= %s", a.ID, b.ID)
	}

	merged, ok, _ := db.Coalesce(ctx, domain.NewPendingChange(domain.UpdateGoal{Goal: domain.Goal{ID: "g2", Title: "v2"}}))
	if !ok || merged.ID != b.ID {
		t.Fatalf("expected coalesce into %s, got ok=%v id=%s", b.ID, ok, merged.ID)
	}

	list, _ := db.ListPending(ctx)
	if len(list) != 2 || list[0].ID != a.ID {
		t.Fatalf("unexpected order: %+v", list)
	}

	_ = db.RemovePending(ctx, a.ID)
	if n, _ := db.CountPending(ctx); n != 1 {
		t.Errorf("expected 1 pending, got %d", n)
	}

	_ = db.SetSyncMeta(ctx, domain.MetaLastSynced, "x")
	_ = db.Clear(ctx)
	if n, _ := db.CountPending(ctx); n != 0 {
		t.Errorf("expected empty queue after clear, got %d", n)
	}
	if _, ok, _ := db.GetSyncMeta(ctx, domain.MetaLastSynced); ok {
		t.Error("expected meta cleared")
	}
}

func TestClaimedChangeIsNeverRewritten(t *testing.T) {
	ctx := context.Background()
	db := New()

	put := domain.NewPendingChange(domain.UpdateGoal{Goal: domain.Goal{ID: "g1", Title: "v1"}})
	first, _ := db.Enqueue(ctx, put)

	claimed, ok, _ := db.ClaimPending(ctx, first.ID)
	if !ok || claimed.ID != first.ID {
		t.Fatalf("claim failed: ok=%v", ok)
	}
	if _, ok, _ := db.ClaimPending(ctx, first.ID); ok {
		t.Error("claimed the same change twice")
	}

	v2 := domain.NewPendingChange(domain.UpdateGoal{Goal: domain.Goal{ID: "g1", Title: "v2"}})
	if _, ok, _ := db.Coalesce(ctx, v2); ok {
		t.Fatal("coalesced into a claimed change")
	}
	v2.ID = first.ID
	if _, ok, _ := db.ReplacePending(ctx, v2); ok {
		t.Error("replaced a claimed change")
	}
	if ok, _ := db.DiscardPending(ctx, v2); ok {
		t.Error("discarded a claimed change")
	}

	_ = db.ReleasePending(ctx, first.ID)
	if _, ok, _ := db.Coalesce(ctx, v2); !ok {
		t.Error("expected coalesce after release")
	}
}

func TestDiscardPendingMatchesMethodAndEndpoint(t *testing.T) {
	ctx := context.Background()
	db := New()

	create, _ := db.Enqueue(ctx, domain.NewPendingChange(domain.CreateGoal{Goal: domain.Goal{Title: "run"}}))

	wrong := domain.NewPendingChange(domain.AddBudgetEntry{})
	wrong.ID = create.ID
	if ok, _ := db.DiscardPending(ctx, wrong); ok {
		t.Fatal("discarded a change with another endpoint")
	}

	match := domain.NewPendingChange(domain.CreateGoal{})
	match.ID = create.ID
	if ok, _ := db.DiscardPending(ctx, match); !ok {
		t.Fatal("expected discard")
	}
	if n, _ := db.CountPending(ctx); n != 0 {
		t.Errorf("expected empty queue, got %d", n)
	}
}
