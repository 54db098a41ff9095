package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"lifesync/internal/domain"
)

type budgetRow struct {
	ID          string  `db:"id"`
	Week        string  `db:"week"`
	Date        string  `db:"date"`
	Amount      float64 `db:"amount"`
	Category    string  `db:"category"`
	Description string  `db:"description"`
	Kind        string  `db:"kind"`
	LoggedAt    string  `db:"logged_at"`
	Synced      int     `db:"synced"`
}

// CacheBudgetWeek replaces the cached entries of week.
func (s *Store) CacheBudgetWeek(ctx context.Context, week string, entries []domain.BudgetEntry) error {
	err := s.replacePartition(ctx, "budget_entries", "week", week, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			if err := deleteByID(ctx, tx, "budget_entries", e.ID); err != nil {
				return err
			}
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO budget_entries(id, week, date, amount, category, description, kind, logged_at, synced)
				 VALUES(:id, :week, :date, :amount, :category, :description, :kind, :logged_at, :synced);`,
				budgetRow{
					ID: e.ID, Week: week, Date: e.Date, Amount: e.Amount, Category: e.Category,
					Description: e.Description, Kind: e.Kind,
					LoggedAt: formatTime(e.LoggedAt), Synced: boolInt(e.Synced),
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache budget week %s: %w", week, err)
	}
	return nil
}

// CachedBudgetWeek returns the cached entries of week. The boolean is false
// when the week was never cached.
func (s *Store) CachedBudgetWeek(ctx context.Context, week string) ([]domain.BudgetEntry, bool, error) {
	var rows []budgetRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, week, date, amount, category, description, kind, logged_at, synced
		 FROM budget_entries WHERE week = ? ORDER BY date, logged_at, id;`), week); err != nil {
		return nil, false, fmt.Errorf("cached budget week %s: %w", week, err)
	}
	found := len(rows) > 0
	if !found {
		ok, err := s.partitionCached(ctx, "budget_entries", week)
		if err != nil {
			return nil, false, err
		}
		found = ok
	}

	out := make([]domain.BudgetEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.BudgetEntry{
			ID: r.ID, Date: r.Date, Amount: r.Amount, Category: r.Category,
			Description: r.Description, Kind: r.Kind,
			LoggedAt: parseTime(r.LoggedAt), Synced: r.Synced != 0,
		})
	}
	return out, found, nil
}
