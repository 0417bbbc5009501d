// Package store persists list-run state and emitted accounts in SQLite.
package store

import (
	"context"

	"github.com/teranos/attrgen/account"
)

// StateStore saves counter state between list runs. scope separates
// independent connector instances sharing one database.
type StateStore interface {
	Load(ctx context.Context, scope string) (map[string]int64, error)
	Save(ctx context.Context, scope string, state map[string]int64) error
}

// AccountStore keeps the accounts emitted by earlier runs.
type AccountStore interface {
	All(ctx context.Context) ([]*account.Account, error)
	// Get returns a not-found error when id was never stored.
	Get(ctx context.Context, id string) (*account.Account, error)
	Put(ctx context.Context, runID string, acct *account.Account) error
}
