package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"lifesync/internal/domain"
)

type pendingRow struct {
	ID         string         `db:"id"`
	Endpoint   string         `db:"endpoint"`
	Method     string         `db:"method"`
	BodyJSON   sql.NullString `db:"body_json"`
	ParamsJSON sql.NullString `db:"params_json"`
	CreatedAt  int64          `db:"created_at"`
}

func (r pendingRow) change() (domain.PendingChange, error) {
	c := domain.PendingChange{
		ID:        r.ID,
		Endpoint:  r.Endpoint,
		Method:    r.Method,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.BodyJSON.Valid && r.BodyJSON.String != "" {
		c.Body = json.RawMessage(r.BodyJSON.String)
	}
	if r.ParamsJSON.Valid && r.ParamsJSON.String != "" {
		if err := json.Unmarshal([]byte(r.ParamsJSON.String), &c.Params); err != nil {
			return domain.PendingChange{}, fmt.Errorf("pending change %s params: %w", r.ID, err)
		}
	}
	return c, nil
}

func encodeBody(b json.RawMessage) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func encodeParams(p map[string]string) (sql.NullString, error) {
	if len(p) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// Enqueue appends change to the queue. CreatedAt never goes backwards relative
// to an already queued change, so insertion order survives clock skew.
func (s *Store) Enqueue(ctx context.Context, change domain.PendingChange) (domain.PendingChange, error) {
	params, err := encodeParams(change.Params)
	if err != nil {
		return domain.PendingChange{}, fmt.Errorf("enqueue: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var last sql.NullInt64
	if err := s.db.GetContext(ctx, &last, "SELECT MAX(created_at) FROM pending_changes;"); err != nil {
		return domain.PendingChange{}, fmt.Errorf("enqueue: %w", err)
	}
	now := s.now()
	stamp := now.UnixNano()
	if last.Valid && last.Int64 > stamp {
		stamp = last.Int64
	}

	id, err := ulid.New(ulid.Timestamp(time.Unix(0, stamp)), s.entropy)
	if err != nil {
		return domain.PendingChange{}, fmt.Errorf("enqueue: %w", err)
	}
	change.ID = id.String()
	change.CreatedAt = time.Unix(0, stamp).UTC()

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO pending_changes(id, endpoint, method, body_json, params_json, created_at)
		 VALUES(:id, :endpoint, :method, :body_json, :params_json, :created_at);`,
		pendingRow{
			ID: change.ID, Endpoint: change.Endpoint, Method: change.Method,
			BodyJSON: encodeBody(change.Body), ParamsJSON: params, CreatedAt: stamp,
		})
	if err != nil {
		return domain.PendingChange{}, fmt.Errorf("enqueue: %w", err)
	}
	return change, nil
}

const pendingColumns = "id, endpoint, method, body_json, params_json, created_at"

// Coalesce replaces the body and params of the oldest unclaimed change with
// the same method and endpoint. Its position in the queue is unchanged.
func (s *Store) Coalesce(ctx context.Context, change domain.PendingChange) (domain.PendingChange, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []pendingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		`SELECT `+pendingColumns+` FROM pending_changes
		 WHERE endpoint = ? AND method = ? ORDER BY created_at, id;`),
		change.Endpoint, change.Method); err != nil {
		return domain.PendingChange{}, false, fmt.Errorf("coalesce: %w", err)
	}
	for _, row := range rows {
		if s.claimed[row.ID] {
			continue
		}
		merged, err := s.rewrite(ctx, row, change)
		if err != nil {
			return domain.PendingChange{}, false, fmt.Errorf("coalesce: %w", err)
		}
		return merged, true, nil
	}
	return domain.PendingChange{}, false, nil
}

// ClaimPending marks id as in flight and returns its current content. An id
// that is already claimed reports false.
func (s *Store) ClaimPending(ctx context.Context, id string) (domain.PendingChange, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimed[id] {
		return domain.PendingChange{}, false, nil
	}
	row, ok, err := s.pendingByID(ctx, id)
	if err != nil || !ok {
		return domain.PendingChange{}, false, err
	}
	c, err := row.change()
	if err != nil {
		return domain.PendingChange{}, false, err
	}
	s.claimed[id] = true
	return c, true, nil
}

func (s *Store) ReleasePending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, id)
	return nil
}

// ReplacePending rewrites the unclaimed change change.ID when its method and
// endpoint match.
func (s *Store) ReplacePending(ctx context.Context, change domain.PendingChange) (domain.PendingChange, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok, err := s.unclaimed(ctx, change)
	if err != nil || !ok {
		return domain.PendingChange{}, false, err
	}
	merged, err := s.rewrite(ctx, row, change)
	if err != nil {
		return domain.PendingChange{}, false, fmt.Errorf("replace pending %s: %w", change.ID, err)
	}
	return merged, true, nil
}

// DiscardPending deletes the unclaimed change change.ID when its method and
// endpoint match.
func (s *Store) DiscardPending(ctx context.Context, change domain.PendingChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.unclaimed(ctx, change)
	if err != nil || !ok {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM pending_changes WHERE id = ?;"), change.ID); err != nil {
		return false, fmt.Errorf("discard pending %s: %w", change.ID, err)
	}
	return true, nil
}

func (s *Store) pendingByID(ctx context.Context, id string) (pendingRow, bool, error) {
	var row pendingRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(
		`SELECT `+pendingColumns+` FROM pending_changes WHERE id = ?;`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return pendingRow{}, false, nil
	}
	if err != nil {
		return pendingRow{}, false, fmt.Errorf("pending change %s: %w", id, err)
	}
	return row, true, nil
}

// unclaimed loads change.ID unless it is claimed or describes another
// request. Callers hold s.mu.
func (s *Store) unclaimed(ctx context.Context, change domain.PendingChange) (pendingRow, bool, error) {
	if s.claimed[change.ID] {
		return pendingRow{}, false, nil
	}
	row, ok, err := s.pendingByID(ctx, change.ID)
	if err != nil || !ok {
		return pendingRow{}, false, err
	}
	if row.Endpoint != change.Endpoint || row.Method != change.Method {
		return pendingRow{}, false, nil
	}
	return row, true, nil
}

// rewrite stores change's body and params on row. Callers hold s.mu.
func (s *Store) rewrite(ctx context.Context, row pendingRow, change domain.PendingChange) (domain.PendingChange, error) {
	params, err := encodeParams(change.Params)
	if err != nil {
		return domain.PendingChange{}, err
	}
	row.BodyJSON = encodeBody(change.Body)
	row.ParamsJSON = params
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE pending_changes SET body_json = ?, params_json = ? WHERE id = ?;"),
		row.BodyJSON, row.ParamsJSON, row.ID); err != nil {
		return domain.PendingChange{}, err
	}
	return row.change()
}

// ListPending returns every queued change, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]domain.PendingChange, error) {
	var rows []pendingRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+pendingColumns+` FROM pending_changes ORDER BY created_at, id;`); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	out := make([]domain.PendingChange, 0, len(rows))
	for _, r := range rows {
		c, err := r.change()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// RemovePending deletes a queued change. Removing an unknown id is not an
// error.
func (s *Store) RemovePending(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claimed, id)
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM pending_changes WHERE id = ?;"), id); err != nil {
		return fmt.Errorf("remove pending %s: %w", id, err)
	}
	return nil
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(1) FROM pending_changes;"); err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}
