// Package account holds the records the connector emits: accounts, the
// base entitlement and the account schema.
package account

import "maps"

// Well-known account attributes every account carries.
const (
	AttrID   = "id"
	AttrName = "name"
)

// Key identifies an account by its simple id.
type Key struct {
	Simple SimpleKey `json:"simple" yaml:"simple"`
}

// SimpleKey is a single-valued account key.
type SimpleKey struct {
	ID string `json:"id" yaml:"id"`
}

// Account is one emitted account record.
type Account struct {
	Key         Key            `json:"key" yaml:"key"`
	Disabled    bool           `json:"disabled" yaml:"disabled"`
	Locked      bool           `json:"locked,omitempty" yaml:"locked,omitempty"`
	Deleted     bool           `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Incomplete  bool           `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	FinalUpdate bool           `json:"finalUpdate,omitempty" yaml:"finalUpdate,omitempty"`
	Attributes  map[string]any `json:"attributes" yaml:"attributes"`
}

// New builds an enabled account keyed on attributes["id"]. The attribute map
// is copied.
func New(attributes map[string]any) *Account {
	attrs := make(map[string]any, len(attributes))
	maps.Copy(attrs, attributes)

	id, _ := attrs[AttrID].(string)
	return &Account{
		Key:        Key{Simple: SimpleKey{ID: id}},
		Disabled:   false,
		Attributes: attrs,
	}
}

// Stub returns the minimal attribute map for an identity that has no account
// on this source yet.
func Stub(id, name string) map[string]any {
	return map[string]any{
		AttrID:   id,
		AttrName: name,
	}
}

// ID returns the account key.
func (a *Account) ID() string {
	return a.Key.Simple.ID
}

// String returns the attribute value for name, or "" when absent or not a string.
func (a *Account) String(name string) string {
	s, _ := a.Attributes[name].(string)
	return s
}

// Created is the result of the create flow.
type Created struct {
	UUID       string         `json:"uuid" yaml:"uuid"`
	Identity   string         `json:"identity" yaml:"identity"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}
