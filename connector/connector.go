// Package connector implements the account operations of the attribute
// generator: list, read, create, schema discovery, the base entitlement and
// the connection test.
package connector

import (
	"context"
	"maps"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/attribute"
	"github.com/teranos/attrgen/counter"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/identity"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/store"
	"github.com/teranos/attrgen/velocity"
)

// DefaultStateScope keys the saved list state when Config.StateScope is empty.
const DefaultStateScope = "default"

// evaluatorCacheSize bounds the parsed-template cache.
const evaluatorCacheSize = 256

// AccountSink receives the accounts a list run emits, in identity order.
type AccountSink interface {
	Send(acct *account.Account) error
}

// PatchWriter persists counter patches produced by the create flow.
type PatchWriter interface {
	WritePatches(ctx context.Context, patches []counter.Patch) error
}

// Config configures a Connector.
type Config struct {
	Definitions []attribute.Definition

	// Counters are the configured counter values, keyed by attribute name.
	// They seed the create-flow counters and ratchet them on reload.
	Counters map[string]int64

	MaxAttempts int
	Search      string

	// SourceID selects which of an identity's accounts belong to us.
	SourceID string

	// StateScope keys the saved list state in the StateStore.
	StateScope string
}

// Connector runs account operations against an identity source.
type Connector struct {
	rules       []*attribute.Rule
	createRules []*attribute.Rule
	builder     *attribute.Builder
	counters    *counter.Service

	source   identity.Source
	search   string
	sourceID string
	scope    string

	states   store.StateStore
	accounts store.AccountStore
	patches  PatchWriter

	mu         sync.RWMutex
	configured map[string]int64

	logger *zap.SugaredLogger
}

// Option customizes a Connector.
type Option func(*Connector)

// WithStateStore persists list-run counter state.
func WithStateStore(s store.StateStore) Option {
	return func(c *Connector) { c.states = s }
}

// WithAccountStore records emitted accounts and, when identities carry no
// account for SourceID, supplies existing account attributes.
func WithAccountStore(s store.AccountStore) Option {
	return func(c *Connector) { c.accounts = s }
}

// WithPatchWriter receives counter patches after each create.
func WithPatchWriter(w PatchWriter) Option {
	return func(c *Connector) { c.patches = w }
}

// New compiles the attribute definitions and builds a Connector.
func New(cfg Config, source identity.Source, opts ...Option) (*Connector, error) {
	if source == nil {
		return nil, errors.New("identity source is required")
	}

	evaluator := velocity.NewEvaluator(evaluatorCacheSize)
	rules, err := attribute.Compile(cfg.Definitions, evaluator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile attribute definitions")
	}

	createRules := make([]*attribute.Rule, len(rules))
	for i, r := range rules {
		createRules[i] = r
		if r.Definition().Counter {
			createRules[i] = r.WithCounter(evaluator)
		}
	}

	scope := cfg.StateScope
	if scope == "" {
		scope = DefaultStateScope
	}

	configured := maps.Clone(cfg.Counters)
	if configured == nil {
		configured = map[string]int64{}
	}

	c := &Connector{
		rules:       rules,
		createRules: createRules,
		builder:     attribute.NewBuilder(evaluator, cfg.MaxAttempts),
		counters:    counter.NewService(counter.StaticSeed(maps.Clone(configured))),
		source:      source,
		search:      cfg.Search,
		sourceID:    cfg.SourceID,
		scope:       scope,
		configured:  configured,
		logger:      logger.ComponentLogger("connector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Schema returns the account schema: id and name plus one string attribute
// per definition.
func (c *Connector) Schema() account.Schema {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return account.BaseSchema().WithStringAttributes(names...)
}

// Entitlements lists the groups the connector exposes.
func (c *Connector) Entitlements() []account.Entitlement {
	return []account.Entitlement{account.BaseEntitlement()}
}

// TestConnection checks the identity source is reachable.
func (c *Connector) TestConnection(ctx context.Context) error {
	if err := c.source.Ping(ctx); err != nil {
		return errors.Wrap(err, "connection test failed")
	}
	return nil
}

// ReloadCounters takes newly configured counter values. Counters already in
// use are raised to them when higher; lower values are ignored.
func (c *Connector) ReloadCounters(ctx context.Context, configured map[string]int64) error {
	c.mu.Lock()
	c.configured = maps.Clone(configured)
	snapshot := maps.Clone(c.configured)
	c.mu.Unlock()

	for _, id := range sortedIDs(snapshot) {
		if _, err := c.counters.Current(ctx, id, snapshot); err != nil {
			return errors.Wrapf(err, "ratchet counter %q", id)
		}
	}
	c.logger.Infow("Counters reloaded", logger.FieldCount, len(snapshot))
	return nil
}

// CounterVersions reports the create-flow counters and their flush state.
func (c *Connector) CounterVersions() map[string]counter.VersionInfo {
	return c.counters.Versions()
}

// SavedState returns the list-run counter state from the StateStore.
func (c *Connector) SavedState(ctx context.Context) (map[string]int64, error) {
	if c.states == nil {
		return map[string]int64{}, nil
	}
	return c.states.Load(ctx, c.scope)
}

func sortedIDs(m map[string]int64) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Connector) counterConfig() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.configured)
}
