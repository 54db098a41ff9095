package domain

import (
	"sort"
	"time"
)

// Fitness entry types that are point-in-time readings. A later reading for
// the same date replaces an earlier one; every other type is a session and
// accumulates.
const (
	FitnessSteps     = "steps"
	FitnessWeight    = "weight"
	FitnessSleep     = "sleep_hours"
	FitnessRestingHR = "resting_hr"
)

var pointInTime = map[string]bool{
	FitnessSteps:     true,
	FitnessWeight:    true,
	FitnessSleep:     true,
	FitnessRestingHR: true,
}

// IsPointInTime reports whether entries of type typ replace each other per day.
func IsPointInTime(typ string) bool {
	return pointInTime[typ]
}

// FitnessEntry is one logged activity or reading.
type FitnessEntry struct {
	ID          string    `json:"id,omitempty"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Type        string    `json:"type" validate:"required,max=64"`
	Value       float64   `json:"value" validate:"gte=0"`
	Unit        string    `json:"unit,omitempty"`
	DurationMin float64   `json:"durationMin,omitempty" validate:"gte=0"`
	DistanceKm  float64   `json:"distanceKm,omitempty" validate:"gte=0"`
	Calories    float64   `json:"calories,omitempty"`
	LoggedAt    time.Time `json:"loggedAt"`
	Synced      bool      `json:"-"`
}

// FitnessDay is the derived view of one day in a fitness week.
type FitnessDay struct {
	Date string `json:"date"`
	// Values holds the effective value per type: the latest reading for
	// point-in-time types, the sum for sessions.
	Values      map[string]float64 `json:"values"`
	Sessions    int                `json:"sessions"`
	DurationMin float64            `json:"durationMin"`
	DistanceKm  float64            `json:"distanceKm"`
	Calories    float64            `json:"calories"`
}

// FitnessTotals summarises a fitness week.
type FitnessTotals struct {
	Steps       float64            `json:"steps"`
	Sessions    int                `json:"sessions"`
	DurationMin float64            `json:"durationMin"`
	DistanceKm  float64            `json:"distanceKm"`
	Calories    float64            `json:"calories"`
	ByType      map[string]float64 `json:"byType"`
	// Latest holds the most recent reading of each point-in-time type.
	Latest map[string]float64 `json:"latest"`
}

// FitnessWeek is the derived view of an ISO week.
type FitnessWeek struct {
	Week    string         `json:"week"`
	Entries []FitnessEntry `json:"entries"`
	Days    []FitnessDay   `json:"days"`
	Totals  FitnessTotals  `json:"totals"`
	Cached  bool           `json:"cached"`
}

// AggregateFitnessWeek builds the week view of week from entries. Only
// entries dated inside the week's seven days are considered.
func AggregateFitnessWeek(week string, entries []FitnessEntry) FitnessWeek {
	keys := WeekDayKeys(week)
	index := make(map[string]int, len(keys))
	fw := FitnessWeek{
		Week:    week,
		Entries: []FitnessEntry{},
		Days:    make([]FitnessDay, len(keys)),
		Totals:  FitnessTotals{ByType: map[string]float64{}, Latest: map[string]float64{}},
	}
	for i, k := range keys {
		index[k] = i
		fw.Days[i] = FitnessDay{Date: k, Values: map[string]float64{}}
	}
	for _, e := range entries {
		if _, ok := index[e.Date]; ok {
			fw.Entries = append(fw.Entries, e)
		}
	}
	sort.Slice(fw.Entries, func(i, j int) bool {
		a, b := fw.Entries[i], fw.Entries[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return lessEntry(a.LoggedAt, a.ID, b.LoggedAt, b.ID)
	})

	// Entries are sorted by date then time, so the last point-in-time reading
	// seen for a (date, type) is the latest one.
	for _, e := range fw.Entries {
		day := &fw.Days[index[e.Date]]
		if IsPointInTime(e.Type) {
			day.Values[e.Type] = e.Value
			fw.Totals.Latest[e.Type] = e.Value
			continue
		}
		day.Values[e.Type] += e.Value
		day.Sessions++
		day.DurationMin += e.DurationMin
		day.DistanceKm += e.DistanceKm
		day.Calories += e.Calories
	}
	for _, day := range fw.Days {
		fw.Totals.Steps += day.Values[FitnessSteps]
		fw.Totals.Sessions += day.Sessions
		fw.Totals.DurationMin += day.DurationMin
		fw.Totals.DistanceKm += day.DistanceKm
		fw.Totals.Calories += day.Calories
		for typ, v := range day.Values {
			if !IsPointInTime(typ) {
				fw.Totals.ByType[typ] += v
			}
		}
	}
	return fw
}
