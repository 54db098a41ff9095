package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"lifesync/internal/domain"
)

type nutritionRow struct {
	ID       string  `db:"id"`
	Date     string  `db:"date"`
	Name     string  `db:"name"`
	Meal     string  `db:"meal"`
	Calories float64 `db:"calories"`
	ProteinG float64 `db:"protein_g"`
	CarbsG   float64 `db:"carbs_g"`
	FatG     float64 `db:"fat_g"`
	LoggedAt string  `db:"logged_at"`
	Synced   int     `db:"synced"`
}

// CacheNutritionDay replaces the cached entries of date.
func (s *Store) CacheNutritionDay(ctx context.Context, date string, entries []domain.NutritionEntry) error {
	err := s.replacePartition(ctx, "nutrition_entries", "date", date, func(tx *sqlx.Tx) error {
		for _, e := range entries {
			if err := deleteByID(ctx, tx, "nutrition_entries", e.ID); err != nil {
				return err
			}
			_, err := tx.NamedExecContext(ctx,
				`INSERT INTO nutrition_entries(id, date, name, meal, calories, protein_g, carbs_g, fat_g, logged_at, synced)
				 VALUES(:id, :date, :name, :meal, :calories, :protein_g, :carbs_g, :fat_g, :logged_at, :synced);`,
				nutritionRow{
					ID: e.ID, Date: date, Name: e.Name, Meal: e.Meal,
					Calories: e.Calories, ProteinG: e.ProteinG, CarbsG: e.CarbsG, FatG: e.FatG,
					LoggedAt: formatTime(e.LoggedAt), Synced: boolInt(e.Synced),
				})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache nutrition day %s: %w", date, err)
	}
	return nil
}

// CachedNutritionDay returns the cached entries of date. The boolean is false
// when the day was never cached.
func (s *Store) CachedNutritionDay(ctx context.Context, date string) ([]domain.NutritionEntry, bool, error) {
	var rows []nutritionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT id, date, name, meal, calories, protein_g, carbs_g, fat_g, logged_at, synced
		 FROM nutrition_entries WHERE date = ? ORDER BY logged_at, id;`), date); err != nil {
		return nil, false, fmt.Errorf("cached nutrition day %s: %w", date, err)
	}
	found := len(rows) > 0
	if !found {
		ok, err := s.partitionCached(ctx, "nutrition_entries", date)
		if err != nil {
			return nil, false, err
		}
		found = ok
	}

	out := make([]domain.NutritionEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.NutritionEntry{
			ID: r.ID, Date: r.Date, Name: r.Name, Meal: r.Meal,
			Calories: r.Calories, ProteinG: r.ProteinG, CarbsG: r.CarbsG, FatG: r.FatG,
			LoggedAt: parseTime(r.LoggedAt), Synced: r.Synced != 0,
		})
	}
	return out, found, nil
}
