// Package identity reads identities from the identity catalog, either over
// HTTP or from a local fixture file.
package identity

import (
	"context"
	"maps"
)

// Identity is one catalog identity with the accounts it already holds.
type Identity struct {
	ID         string         `json:"id" yaml:"id" toml:"id"`
	Name       string         `json:"name" yaml:"name" toml:"name"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
	Accounts   []AccountRef   `json:"accounts,omitempty" yaml:"accounts,omitempty" toml:"accounts,omitempty"`
}

// AccountRef is an account an identity holds on some source.
type AccountRef struct {
	SourceID   string         `json:"source_id" yaml:"source_id" toml:"source_id"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
}

// AccountOn returns a copy of the account attributes the identity holds on
// sourceID, or nil when it has no account there.
func (i *Identity) AccountOn(sourceID string) map[string]any {
	for _, a := range i.Accounts {
		if a.SourceID == sourceID && a.Attributes != nil {
			return maps.Clone(a.Attributes)
		}
	}
	return nil
}

// HasAttributes reports whether the identity carries any attributes to
// render against.
func (i *Identity) HasAttributes() bool {
	return len(i.Attributes) > 0
}

// Source is where identities come from.
type Source interface {
	// Search returns the identities matching query, ordered by id.
	Search(ctx context.Context, query string) ([]Identity, error)
	// Get returns one identity or an error satisfying errors.IsNotFoundError.
	Get(ctx context.Context, id string) (*Identity, error)
	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error
}
