package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) GetSyncMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.GetContext(ctx, &v, s.db.Rebind("SELECT value FROM sync_meta WHERE key = ?;"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get sync meta %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) SetSyncMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO sync_meta(key, value) VALUES(?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value;`), key, value)
	if err != nil {
		return fmt.Errorf("set sync meta %s: %w", key, err)
	}
	return nil
}
