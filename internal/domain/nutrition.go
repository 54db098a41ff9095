// Package domain contains the core entities, the ports implemented by the
// adapters, and the pure week partitioning and aggregation rules.
package domain

import (
	"sort"
	"time"
)

// NutritionEntry is one logged food item.
type NutritionEntry struct {
	ID       string    `json:"id,omitempty"`
	Date     string    `json:"date" validate:"required,datetime=2006-01-02"`
	Name     string    `json:"name" validate:"required,max=200"`
	Meal     string    `json:"meal,omitempty"`
	Calories float64   `json:"calories" validate:"gte=0"`
	ProteinG float64   `json:"proteinG" validate:"gte=0"`
	CarbsG   float64   `json:"carbsG" validate:"gte=0"`
	FatG     float64   `json:"fatG" validate:"gte=0"`
	LoggedAt time.Time `json:"loggedAt"`
	Synced   bool      `json:"-"`
}

// NutritionTotals are the macro totals of a set of entries.
type NutritionTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"proteinG"`
	CarbsG   float64 `json:"carbsG"`
	FatG     float64 `json:"fatG"`
	Entries  int     `json:"entries"`
}

// NutritionDay is the derived view of a single calendar day.
type NutritionDay struct {
	Date    string             `json:"date"`
	Entries []NutritionEntry   `json:"entries"`
	Totals  NutritionTotals    `json:"totals"`
	ByMeal  map[string]float64 `json:"byMeal"`
	// Cached is set when the view was rebuilt from the local cache.
	Cached bool `json:"cached"`
}

// AggregateNutritionDay builds the day view from the entries dated date.
// Entries from other days are ignored. Food items always accumulate.
func AggregateNutritionDay(date string, entries []NutritionEntry) NutritionDay {
	day := NutritionDay{Date: date, Entries: []NutritionEntry{}, ByMeal: map[string]float64{}}
	for _, e := range entries {
		if e.Date == date {
			day.Entries = append(day.Entries, e)
		}
	}
	sort.Slice(day.Entries, func(i, j int) bool {
		return lessEntry(day.Entries[i].LoggedAt, day.Entries[i].ID, day.Entries[j].LoggedAt, day.Entries[j].ID)
	})
	for _, e := range day.Entries {
		day.Totals.Calories += e.Calories
		day.Totals.ProteinG += e.ProteinG
		day.Totals.CarbsG += e.CarbsG
		day.Totals.FatG += e.FatG
		meal := e.Meal
		if meal == "" {
			meal = "other"
		}
		day.ByMeal[meal] += e.Calories
	}
	day.Totals.Entries = len(day.Entries)
	return day
}

// lessEntry is the canonical order used before summing so that totals do not
// depend on the order entries were fetched or cached in.
func lessEntry(at1 time.Time, id1 string, at2 time.Time, id2 string) bool {
	if !at1.Equal(at2) {
		return at1.Before(at2)
	}
	return id1 < id2
}
