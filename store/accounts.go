package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/errors"
)

// SQLAccountStore is an AccountStore on the accounts table.
type SQLAccountStore struct {
	db *sql.DB
}

// NewAccountStore wraps db. The schema must be migrated.
func NewAccountStore(db *sql.DB) *SQLAccountStore {
	return &SQLAccountStore{db: db}
}

// All returns every stored account ordered by id.
func (s *SQLAccountStore) All(ctx context.Context) ([]*account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, attributes FROM accounts ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query accounts")
	}
	defer rows.Close()

	var out []*account.Account
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "scan account")
		}
		acct, err := decodeAccount(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, errors.Wrap(rows.Err(), "iterate accounts")
}

// Get looks one account up by id.
func (s *SQLAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT attributes FROM accounts WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("account %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query account %s", id)
	}
	return decodeAccount(id, raw)
}

func decodeAccount(id, raw string) (*account.Account, error) {
	attrs := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, errors.Wrapf(err, "decode attributes of account %s", id)
	}
	attrs[account.AttrID] = id
	return account.New(attrs), nil
}

// Put inserts or replaces acct, recording the run that emitted it.
func (s *SQLAccountStore) Put(ctx context.Context, runID string, acct *account.Account) error {
	if acct.ID() == "" {
		return errors.NewInvalidRequestError("account has no id")
	}
	raw, err := json.Marshal(acct.Attributes)
	if err != nil {
		return errors.Wrapf(err, "encode attributes of account %s", acct.ID())
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, attributes, run_id, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			attributes = excluded.attributes,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		acct.ID(), acct.String(account.AttrName), string(raw), runID)
	return errors.Wrapf(err, "store account %s", acct.ID())
}
