package connector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/attribute"
	"github.com/teranos/attrgen/counter"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/identity"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// RunSummary describes one list run.
type RunSummary struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Identities int           `json:"identities" yaml:"identities"`
	Generated  int           `json:"generated" yaml:"generated"`
	Failed     int           `json:"failed" yaml:"failed"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// List computes attributes for every identity matching the configured search
// and sends one account per identity to sink.
//
// Definitions are processed one at a time across all identities. Unique
// definitions first collect every value already held by an identity or its
// existing account, so values are never reissued. The counter state is
// loaded before the run and saved once after every account was sent.
//
// An identity without attributes aborts the run with
// errors.ErrMissingAttributeData. Other per-attribute failures are logged and
// leave the attribute unset.
func (c *Connector) List(ctx context.Context, sink AccountSink) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: uuid.NewString()}
	ctx = logger.WithRunID(ctx, summary.RunID)
	log := logger.WithSymbol(logger.LoggerFromContext(ctx).Named("connector.list"), sym.List)

	saved, err := c.SavedState(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load saved state")
	}
	state := counter.NewState(saved)

	identities, err := c.source.Search(ctx, c.search)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search identities")
	}
	summary.Identities = len(identities)
	log.Infow("Starting list run", logger.FieldCount, len(identities))

	existing, err := c.existingAccounts(ctx, identities)
	if err != nil {
		return nil, err
	}

	used := c.prescan(identities, existing)

	working := make(map[string]map[string]any, len(identities))
	for _, rule := range c.rules {
		persist := rule.Definition().Counter

		for i := range identities {
			ident := &identities[i]

			acct, ok := working[ident.ID]
			if !ok {
				acct = existing[ident.ID]
				if acct == nil {
					acct = account.Stub(ident.ID, ident.Name)
				}
				working[ident.ID] = acct
			}

			if !rule.NeedsValue(acct) {
				continue
			}
			if !ident.HasAttributes() {
				return nil, errors.Wrapf(errors.ErrMissingAttributeData, "identity %s", ident.ID)
			}

			value, err := c.builder.Build(rule, ident.Attributes, attribute.CounterFunc(state.Counter(rule.Name(), persist)), used[rule.Name()])
			if err != nil {
				summary.Failed++
				logf := log.Errorw
				if errors.IsAttributeFailure(err) {
					logf = log.Warnw
				}
				logf("Failed to generate attribute",
					logger.FieldIdentity, ident.ID,
					logger.FieldAttribute, rule.Name(),
					logger.FieldError, err)
				continue
			}
			acct[rule.Name()] = value
			summary.Generated++
		}
	}

	for i := range identities {
		ident := &identities[i]
		acct, ok := working[ident.ID]
		if !ok {
			// No definitions: the account is whatever already exists.
			acct = existing[ident.ID]
			if acct == nil {
				acct = account.Stub(ident.ID, ident.Name)
			}
		}

		out := account.New(acct)
		if err := sink.Send(out); err != nil {
			return nil, errors.Wrapf(err, "failed to send account %s", out.ID())
		}
		if c.accounts != nil {
			if err := c.accounts.Put(ctx, summary.RunID, out); err != nil {
				return nil, errors.Wrapf(err, "failed to record account %s", out.ID())
			}
		}
	}

	if c.states != nil {
		if err := c.states.Save(ctx, c.scope, state.Snapshot()); err != nil {
			return nil, errors.Wrap(err, "failed to save state")
		}
	}

	summary.Duration = time.Since(start)
	log.Infow("List run complete",
		logger.FieldCount, len(identities),
		"generated", summary.Generated,
		"failed", summary.Failed,
		logger.FieldDurationMS, summary.Duration.Milliseconds())
	return summary, nil
}

// existingAccounts maps identity id to the attributes of its account on our
// source. Identities carrying no such account fall back to the account store.
func (c *Connector) existingAccounts(ctx context.Context, identities []identity.Identity) (map[string]map[string]any, error) {
	existing := make(map[string]map[string]any, len(identities))
	for i := range identities {
		if attrs := identities[i].AccountOn(c.sourceID); attrs != nil {
			existing[identities[i].ID] = attrs
		}
	}

	if c.accounts == nil {
		return existing, nil
	}

	stored, err := c.accounts.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stored accounts")
	}
	for _, acct := range stored {
		if _, ok := existing[acct.ID()]; !ok {
			existing[acct.ID()] = acct.Attributes
		}
	}
	return existing, nil
}

// prescan collects, per unique definition, the values already taken by any
// identity attribute or existing account attribute of the same name. Refresh
// definitions recompute every account, so existing account values do not
// count as taken for them.
func (c *Connector) prescan(identities []identity.Identity, existing map[string]map[string]any) map[string]*attribute.ValueSet {
	used := make(map[string]*attribute.ValueSet)
	for _, rule := range c.rules {
		if !rule.Definition().Unique {
			continue
		}
		set := attribute.NewValueSet()
		name := rule.Name()
		for i := range identities {
			if v, ok := identities[i].Attributes[name].(string); ok {
				set.Add(v)
			}
		}
		for _, attrs := range existing {
			if rule.Definition().Refresh {
				break
			}
			if v, ok := attrs[name].(string); ok {
				set.Add(v)
			}
		}
		used[name] = set
	}
	return used
}
