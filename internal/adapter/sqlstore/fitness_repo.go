package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"lifesync/internal/domain"
)

type fitnessRow struct {
	ID          string  `db:"id"`
	Week        string  `db:"week"`
	Date        string  `db:"date"`
	Type        string  `db:"type"`
	Value       float64 `db:"value"`
	Unit        string  `db:"unit"`
	DurationMin float64 `db:"duration_min"`
	DistanceKm  float64 `db:"distance_km"`
	Calories    float64 `db:"calories"`
	LoggedAt    string  `db:"logged_at"`
	Synced      int     `db:"synced"`
}

// CacheFitnessWeek replaces the cached entries of week.
func (s *Store) CacheFitnessWeek(ctx context.Context, week string, entries []domain.FitnessEntry) error {
	err := s.replacePartition(ctx, "fitness_entries", "week", week, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			if err := deleteByID(ctx, tx, "fitness_entries", e.ID); err != nil {
				return err
			}
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO fitness_entries(id, week, date, type, value, unit, duration_min, distance_km, calories, logged_at, synced)
				 VALUES(:id, :week, :date, :type, :value, :unit, :duration_min, :distance_km, :calories, :logged_at, :synced);`,
				fitnessRow{
					ID: e.ID, Week: week, Date: e.Date, Type: e.Type, Value: e.Value, Unit: e.Unit,
					DurationMin: e.DurationMin, DistanceKm: e.DistanceKm, Calories: e.Calories,
					LoggedAt: formatTime(e.LoggedAt), Synced: boolInt(e.Synced),
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache fitness week %s: %w", week, err)
	}
	return nil
}

// CachedFitnessWeek returns the cached entries of week. The boolean is false
// when the week was never cached.
func (s *Store) CachedFitnessWeek(ctx context.Context, week string) ([]domain.FitnessEntry, bool, error) {
	var rows []fitnessRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, week, date, type, value, unit, duration_min, distance_km, calories, logged_at, synced
		 FROM fitness_entries WHERE week = ? ORDER BY date, logged_at, id;`), week); err != nil {
		return nil, false, fmt.Errorf("cached fitness week %s: %w", week, err)
	}
	found := len(rows) > 0
	if !found {
		ok, err := s.partitionCached(ctx, "fitness_entries", week)
		if err != nil {
			return nil, false, err
		}
		found = ok
	}

	out := make([]domain.FitnessEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.FitnessEntry{
			ID: r.ID, Date: r.Date, Type: r.Type, Value: r.Value, Unit: r.Unit,
			DurationMin: r.DurationMin, DistanceKm: r.DistanceKm, Calories: r.Calories,
			LoggedAt: parseTime(r.LoggedAt), Synced: r.Synced != 0,
		})
	}
	return out, found, nil
}
