package domain_test

import (
	"reflect"
	"testing"
	"time"

	"lifesync/internal/domain"
)

func at(day string, hour int) time.Time {
	d, _ := domain.ParseDayKey(day)
	return d.Add(time.Duration(hour) * time.Hour)
}

func TestAggregateFitnessWeek_StepsReplace(t *testing.T) {
	entries := []domain.FitnessEntry{
		{ID: "a", Date: "2026-01-05", Type: domain.FitnessSteps, Value: 5000, LoggedAt: at("2026-01-05", 9)},
		{ID: "b", Date: "2026-01-05", Type: domain.FitnessSteps, Value: 10000, LoggedAt: at("2026-01-05", 21)},
	}
	fw := domain.AggregateFitnessWeek("2026-W02", entries)
	if got := fw.Days[0].Values[domain.FitnessSteps]; got != 10000 {
		t.Errorf("monday steps = %v; want 10000", got)
	}
	if fw.Totals.Steps != 10000 {
		t.Errorf("week steps = %v; want 10000", fw.Totals.Steps)
	}

	// Same readings in reverse order: the later reading still wins.
	rev := []domain.FitnessEntry{entries[1], entries[0]}
	if got := domain.AggregateFitnessWeek("2026-W02", rev).Totals.Steps; got != 10000 {
		t.Errorf("reversed input steps = %v; want 10000", got)
	}
}

func TestAggregateFitnessWeek_SessionsAccumulate(t *testing.T) {
	entries := []domain.FitnessEntry{
		{ID: "r1", Date: "2026-01-06", Type: "run", Value: 5, DurationMin: 30, DistanceKm: 5, Calories: 300, LoggedAt: at("2026-01-06", 7)},
		{ID: "r2", Date: "2026-01-06", Type: "run", Value: 3, DurationMin: 20, DistanceKm: 3, Calories: 200, LoggedAt: at("2026-01-06", 18)},
		{ID: "s1", Date: "2026-01-08", Type: "swim", Value: 1, DurationMin: 45, DistanceKm: 1, Calories: 400, LoggedAt: at("2026-01-08", 12)},
		{ID: "w1", Date: "2026-01-07", Type: domain.FitnessWeight, Value: 81, LoggedAt: at("2026-01-07", 7)},
		{ID: "w2", Date: "2026-01-09", Type: domain.FitnessWeight, Value: 80.5, LoggedAt: at("2026-01-09", 7)},
		{ID: "out", Date: "2026-01-12", Type: "run", Value: 10, LoggedAt: at("2026-01-12", 7)},
	}
	fw := domain.AggregateFitnessWeek("2026-W02", entries)

	if len(fw.Entries) != 5 {
		t.Fatalf("entries = %d; want 5 (next week's run excluded)", len(fw.Entries))
	}
	if got := fw.Days[1].Values["run"]; got != 8 {
		t.Errorf("tuesday run = %v; want 8", got)
	}
	if fw.Days[1].Sessions != 2 {
		t.Errorf("tuesday sessions = %d; want 2", fw.Days[1].Sessions)
	}
	if fw.Totals.Sessions != 3 || fw.Totals.DurationMin != 95 || fw.Totals.DistanceKm != 9 || fw.Totals.Calories != 900 {
		t.Errorf("totals = %+v", fw.Totals)
	}
	if fw.Totals.ByType["run"] != 8 || fw.Totals.ByType["swim"] != 1 {
		t.Errorf("byType = %v", fw.Totals.ByType)
	}
	if _, ok := fw.Totals.ByType[domain.FitnessWeight]; ok {
		t.Error("point-in-time weight must not be summed")
	}
	if fw.Totals.Latest[domain.FitnessWeight] != 80.5 {
		t.Errorf("latest weight = %v; want 80.5", fw.Totals.Latest[domain.FitnessWeight])
	}
}

func TestAggregateFitnessWeek_Idempotent(t *testing.T) {
	entries := []domain.FitnessEntry{
		{ID: "1", Date: "2026-01-05", Type: "cycle", Value: 12.3, DistanceKm: 12.3, LoggedAt: at("2026-01-05", 8)},
		{ID: "2", Date: "2026-01-05", Type: "cycle", Value: 0.1, DistanceKm: 0.1, LoggedAt: at("2026-01-05", 9)},
		{ID: "3", Date: "2026-01-05", Type: "cycle", Value: 0.2, DistanceKm: 0.2, LoggedAt: at("2026-01-05", 10)},
		{ID: "4", Date: "2026-01-10", Type: domain.FitnessSteps, Value: 7000, LoggedAt: at("2026-01-10", 10)},
	}
	first := domain.AggregateFitnessWeek("2026-W02", entries)
	second := domain.AggregateFitnessWeek("2026-W02", entries)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate not idempotent:\n%+v\n%+v", first, second)
	}
	shuffled := []domain.FitnessEntry{entries[2], entries[0], entries[3], entries[1]}
	if !reflect.DeepEqual(first, domain.AggregateFitnessWeek("2026-W02", shuffled)) {
		t.Fatal("aggregate depends on input order")
	}
}

func TestAggregateBudgetWeek(t *testing.T) {
	entries := []domain.BudgetEntry{
		{ID: "1", Date: "2026-01-05", Amount: 12, Category: "Food", LoggedAt: at("2026-01-05", 12)},
		{ID: "2", Date: "2026-01-05", Amount: 8.5, Category: "Food", LoggedAt: at("2026-01-05", 19)},
		{ID: "3", Date: "2026-01-11", Amount: 40, Category: "Transport", LoggedAt: at("2026-01-11", 9)},
		{ID: "4", Date: "2026-01-07", Amount: 1000, Category: "Salary", Kind: domain.BudgetIncome, LoggedAt: at("2026-01-07", 9)},
		{ID: "5", Date: "2026-01-04", Amount: 99, Category: "Food", LoggedAt: at("2026-01-04", 9)},
	}
	bw := domain.AggregateBudgetWeek("2026-W02", entries)
	if bw.Spent != 60.5 {
		t.Errorf("spent = %v; want 60.5", bw.Spent)
	}
	if bw.Income != 1000 {
		t.Errorf("income = %v; want 1000", bw.Income)
	}
	if bw.ByCategory["Food"] != 20.5 || bw.ByCategory["Transport"] != 40 {
		t.Errorf("byCategory = %v", bw.ByCategory)
	}
	if bw.ByDay[0] != 20.5 || bw.ByDay[6] != 40 || len(bw.ByDay) != 7 {
		t.Errorf("byDay = %v", bw.ByDay)
	}
	if !reflect.DeepEqual(bw, domain.AggregateBudgetWeek("2026-W02", entries)) {
		t.Error("aggregate not idempotent")
	}
}

func TestAggregateBudgetWeek_Empty(t *testing.T) {
	bw := domain.AggregateBudgetWeek("2026-W02", nil)
	if bw.Entries == nil || len(bw.Entries) != 0 || bw.Spent != 0 || len(bw.ByDay) != 7 {
		t.Errorf("empty week = %+v", bw)
	}
}

func TestAggregateNutritionDay(t *testing.T) {
	entries := []domain.NutritionEntry{
		{ID: "1", Date: "2026-01-05", Name: "oats", Meal: "breakfast", Calories: 350, ProteinG: 12, CarbsG: 60, FatG: 6, LoggedAt: at("2026-01-05", 8)},
		{ID: "2", Date: "2026-01-05", Name: "salad", Meal: "lunch", Calories: 420, ProteinG: 20, CarbsG: 30, FatG: 22, LoggedAt: at("2026-01-05", 13)},
		{ID: "3", Date: "2026-01-05", Name: "apple", Calories: 95, CarbsG: 25, LoggedAt: at("2026-01-05", 16)},
		{ID: "4", Date: "2026-01-06", Name: "pizza", Calories: 900, LoggedAt: at("2026-01-06", 20)},
	}
	day := domain.AggregateNutritionDay("2026-01-05", entries)
	if day.Totals.Entries != 3 || day.Totals.Calories != 865 || day.Totals.ProteinG != 32 {
		t.Errorf("totals = %+v", day.Totals)
	}
	if day.ByMeal["other"] != 95 || day.ByMeal["breakfast"] != 350 {
		t.Errorf("byMeal = %v", day.ByMeal)
	}
	if day.Entries[0].ID != "1" || day.Entries[2].ID != "3" {
		t.Errorf("entries not in logged order: %v", day.Entries)
	}
}

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name string
		goal domain.Goal
		want float64
	}{
		{"half way", domain.Goal{Target: 10, Current: 5}, 0.5},
		{"overshoot clamps", domain.Goal{Target: 10, Current: 15}, 1},
		{"negative clamps", domain.Goal{Target: 10, Current: -1}, 0},
		{"no target open", domain.Goal{}, 0},
		{"no target completed", domain.Goal{Completed: true}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.goal.Progress(); got != tc.want {
				t.Errorf("Progress() = %v; want %v", got, tc.want)
			}
		})
	}
}
