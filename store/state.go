package store

import (
	"context"
	"database/sql"

	"github.com/teranos/attrgen/errors"
)

// SQLStateStore is a StateStore on the counter_state table.
type SQLStateStore struct {
	db *sql.DB
}

// NewStateStore wraps db. The schema must be migrated.
func NewStateStore(db *sql.DB) *SQLStateStore {
	return &SQLStateStore{db: db}
}

// Load returns the saved counters for scope. An unknown scope yields an
// empty map.
func (s *SQLStateStore) Load(ctx context.Context, scope string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM counter_state WHERE scope = ? ORDER BY name`, scope)
	if err != nil {
		return nil, errors.Wrapf(err, "load counter state %q", scope)
	}
	defer rows.Close()

	state := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, errors.Wrap(err, "scan counter state")
		}
		state[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate counter state")
	}
	return state, nil
}

// Save upserts every counter of state in one transaction. Counters missing
// from state are left as they are.
func (s *SQLStateStore) Save(ctx context.Context, scope string, state map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin save counter state")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO counter_state (scope, name, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, name) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`)
	if err != nil {
		return errors.Wrap(err, "prepare save counter state")
	}
	defer stmt.Close()

	for name, value := range state {
		if value < 0 {
			return errors.NewInvalidRequestError("counter %q: negative value %d", name, value)
		}
		if _, err := stmt.ExecContext(ctx, scope, name, value); err != nil {
			return errors.Wrapf(err, "save counter %q", name)
		}
	}

	return errors.Wrap(tx.Commit(), "commit counter state")
}
