// Package sqlstore implements the local cache store on database/sql. The
// embedded sqlite driver is the default; postgres is accepted for hosts that
// keep the cache in a shared database.
package sqlstore

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"lifesync/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store implements domain.CacheStore.
type Store struct {
	db *sqlx.DB

	// mu serialises queue writes so ids and created_at stamps stay
	// monotonic and claims are checked atomically with rewrites.
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	// claimed holds the ids of changes being replayed by this process.
	claimed map[string]bool
}

var _ domain.CacheStore = (*Store)(nil)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var (
	schemaMu   sync.Mutex
	schemaDone = map[string]bool{}
)

// Open connects to the cache database, pings it and creates the schema the
// first time this process opens the given driver and DSN.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if path := sqlitePath(dsn); path != "" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", driver)
	}

	db, err := sqlx.Open(driver, connString(driver, dsn))
	if err != nil {
		return nil, err
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := New(db)
	schemaMu.Lock()
	defer schemaMu.Unlock()
	key := driver + "|" + dsn
	if !schemaDone[key] {
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		schemaDone[key] = true
	}
	return s, nil
}

// New wraps an open database whose schema already exists.
func New(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
		claimed: make(map[string]bool),
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pending_changes (
			id TEXT PRIMARY KEY,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			body_json TEXT,
			params_json TEXT,
			created_at BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pending_changes_created_at ON pending_changes(created_at, id);`,
		`CREATE TABLE IF NOT EXISTS sync_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS cache_partitions (
			tbl TEXT NOT NULL,
			partition_key TEXT NOT NULL,
			cached_at TEXT NOT NULL,
			PRIMARY KEY (tbl, partition_key)
		);`,
		`CREATE TABLE IF NOT EXISTS nutrition_entries (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			name TEXT NOT NULL,
			meal TEXT NOT NULL DEFAULT '',
			calories DOUBLE PRECISION NOT NULL DEFAULT 0,
			protein_g DOUBLE PRECISION NOT NULL DEFAULT 0,
			carbs_g DOUBLE PRECISION NOT NULL DEFAULT 0,
			fat_g DOUBLE PRECISION NOT NULL DEFAULT 0,
			logged_at TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nutrition_entries_date ON nutrition_entries(date);`,
		`CREATE TABLE IF NOT EXISTS fitness_entries (
			id TEXT PRIMARY KEY,
			week TEXT NOT NULL,
			date TEXT NOT NULL,
			type TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			unit TEXT NOT NULL DEFAULT '',
			duration_min DOUBLE PRECISION NOT NULL DEFAULT 0,
			distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
			calories DOUBLE PRECISION NOT NULL DEFAULT 0,
			logged_at TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fitness_entries_week ON fitness_entries(week);`,
		`CREATE TABLE IF NOT EXISTS budget_entries (
			id TEXT PRIMARY KEY,
			week TEXT NOT NULL,
			date TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL DEFAULT '',
			logged_at TEXT NOT NULL DEFAULT '',
			synced INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_budget_entries_week ON budget_entries(week);`,
		`CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			domain TEXT NOT NULL DEFAULT '',
			metric TEXT NOT NULL DEFAULT '',
			target DOUBLE PRECISION NOT NULL DEFAULT 0,
			current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			period TEXT NOT NULL DEFAULT '',
			deadline TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			synced INTEGER NOT NULL DEFAULT 0
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Clear drops every cached row, queued change and meta value.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"nutrition_entries", "fitness_entries", "budget_entries", "goals", "cache_partitions", "pending_changes", "sync_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+";"); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.mu.Lock()
	s.claimed = make(map[string]bool)
	s.mu.Unlock()
	return nil
}

// replacePartition deletes every row of table whose column equals key, runs
// insert, and marks the partition cached, all in one transaction.
func (s *Store) replacePartition(ctx context.Context, table, column, key string, insert func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	del := "DELETE FROM " + table + ";"
	var args []any
	if column != "" {
		del = "DELETE FROM " + table + " WHERE " + column + " = ?;"
		args = append(args, key)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(del), args...); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO cache_partitions(tbl, partition_key, cached_at) VALUES(?, ?, ?)
		 ON CONFLICT (tbl, partition_key) DO UPDATE SET cached_at = excluded.cached_at;`),
		table, key, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// partitionCached reports whether table's partition key was ever cached.
func (s *Store) partitionCached(ctx context.Context, table, key string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(
		"SELECT COUNT(1) FROM cache_partitions WHERE tbl = ? AND partition_key = ?;"), table, key)
	return n > 0, err
}

// deleteByID removes a row that may live in another partition before it is
// inserted into this one.
func deleteByID(ctx context.Context, tx *sqlx.Tx, table, id string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE id = ?;"), id)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

func connString(driver, dsn string) string {
	if driver != DriverSQLite {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
}
