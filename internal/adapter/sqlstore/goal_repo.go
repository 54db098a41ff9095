package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"lifesync/internal/domain"
)

const goalsPartition = "all"

type goalRow struct {
	ID        string  `db:"id"`
	Title     string  `db:"title"`
	Domain    string  `db:"domain"`
	Metric    string  `db:"metric"`
	Target    float64 `db:"target"`
	Current   float64 `db:"current_value"`
	Period    string  `db:"period"`
	Deadline  string  `db:"deadline"`
	Completed int     `db:"completed"`
	Synced    int     `db:"synced"`
}

// CacheGoals replaces the cached goal list.
func (s *Store) CacheGoals(ctx context.Context, goals []domain.Goal) error {
	err := s.replacePartition(ctx, "goals", "", goalsPartition, func(tx *sqlx.Tx) error {
		for _, g := range goals {
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO goals(id, title, domain, metric, target, current_value, period, deadline, completed, synced)
				 VALUES(:id, :title, :domain, :metric, :target, :current_value, :period, :deadline, :completed, :synced);`,
				goalRow{
					ID: g.ID, Title: g.Title, Domain: g.Domain, Metric: g.Metric,
					Target: g.Target, Current: g.Current, Period: g.Period, Deadline: g.Deadline,
					Completed: boolInt(g.Completed), Synced: boolInt(g.Synced),
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache goals: %w", err)
	}
	return nil
}

// CachedGoals returns the cached goal list.
func (s *Store) CachedGoals(ctx context.Context) ([]domain.Goal, bool, error) {
	var rows []goalRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, title, domain, metric, target, current_value, period, deadline, completed, synced
		 FROM goals ORDER BY id;`); err != nil {
		return nil, false, fmt.Errorf("cached goals: %w", err)
	}
	found := len(rows) > 0
	if !found {
		ok, err := s.partitionCached(ctx, "goals", goalsPartition)
		if err != nil {
			return nil, false, err
		}
		found = ok
	}

	out := make([]domain.Goal, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Goal{
			ID: r.ID, Title: r.Title, Domain: r.Domain, Metric: r.Metric,
			Target: r.Target, Current: r.Current, Period: r.Period, Deadline: r.Deadline,
			Completed: r.Completed != 0, Synced: r.Synced != 0,
		})
	}
	return out, found, nil
}
