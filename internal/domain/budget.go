package domain

import (
	"sort"
	"time"
)

// Budget entry kinds.
const (
	BudgetExpense = "expense"
	BudgetIncome  = "income"
)

// BudgetEntry is one logged transaction.
type BudgetEntry struct {
	ID          string    `json:"id,omitempty"`
	Date        string    `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Kind        string    `json:"kind,omitempty" validate:"omitempty,oneof=expense income"`
	LoggedAt    time.Time `json:"loggedAt"`
	Synced      bool      `json:"-"`
}

// IsIncome reports whether the entry adds to rather than spends the budget.
func (e BudgetEntry) IsIncome() bool {
	return e.Kind == BudgetIncome
}

// BudgetWeek is the derived view of an ISO week of transactions.
type BudgetWeek struct {
	Week       string             `json:"week"`
	Entries    []BudgetEntry      `json:"entries"`
	Spent      float64            `json:"spent"`
	Income     float64            `json:"income"`
	ByCategory map[string]float64 `json:"byCategory"`
	// ByDay holds spending per day, Monday first.
	ByDay  []float64 `json:"byDay"`
	Cached bool      `json:"cached"`
}

// AggregateBudgetWeek builds the week view of week from entries. Only
// entries dated inside the week's seven days are considered.
func AggregateBudgetWeek(week string, entries []BudgetEntry) BudgetWeek {
	keys := WeekDayKeys(week)
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		index[k] = i
	}
	bw := BudgetWeek{
		Week:       week,
		Entries:    []BudgetEntry{},
		ByCategory: map[string]float64{},
		ByDay:      make([]float64, len(keys)),
	}
	for _, e := range entries {
		if _, ok := index[e.Date]; ok {
			bw.Entries = append(bw.Entries, e)
		}
	}
	sort.Slice(bw.Entries, func(i, j int) bool {
		a, b := bw.Entries[i], bw.Entries[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return lessEntry(a.LoggedAt, a.ID, b.LoggedAt, b.ID)
	})
	for _, e := range bw.Entries {
		if e.IsIncome() {
			bw.Income += e.Amount
			continue
		}
		bw.Spent += e.Amount
		bw.ByCategory[e.Category] += e.Amount
		bw.ByDay[index[e.Date]] += e.Amount
	}
	return bw
}
