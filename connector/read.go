package connector

import (
	"context"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/attribute"
	"github.com/teranos/attrgen/counter"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/identity"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// Read computes the account for one identity. Each counter draws from a fresh
// ephemeral sequence and uniqueness is not enforced, so the result can
// differ from what a list run would emit for the same identity.
func (c *Connector) Read(ctx context.Context, id string) (*account.Account, error) {
	log := logger.WithSymbol(logger.LoggerFromContext(ctx).Named("connector.read"), sym.Read)

	ident, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch identity %s", id)
	}

	attrs, err := c.existingAccount(ctx, ident)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		attrs = account.Stub(ident.ID, ident.Name)
	}

	for _, rule := range c.rules {
		if !rule.NeedsValue(attrs) {
			continue
		}
		if !ident.HasAttributes() {
			return nil, errors.Wrapf(errors.ErrMissingAttributeData, "identity %s", ident.ID)
		}

		value, err := c.builder.BuildSingleAttribute(rule, ident.Attributes, attribute.CounterFunc(counter.NewEphemeral()))
		if err != nil {
			log.Errorw("Failed to generate attribute",
				logger.FieldIdentity, ident.ID,
				logger.FieldAttribute, rule.Name(),
				logger.FieldError, err)
			continue
		}
		attrs[rule.Name()] = value
	}

	return account.New(attrs), nil
}

// existingAccount returns the attributes of ident's account on our source,
// falling back to the account store.
func (c *Connector) existingAccount(ctx context.Context, ident *identity.Identity) (map[string]any, error) {
	if attrs := ident.AccountOn(c.sourceID); attrs != nil {
		return attrs, nil
	}
	if c.accounts == nil {
		return nil, nil
	}

	stored, err := c.accounts.Get(ctx, ident.ID)
	if errors.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load stored account %s", ident.ID)
	}
	return stored.Attributes, nil
}
