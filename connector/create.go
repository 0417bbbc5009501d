package connector

import (
	"context"
	"maps"

	"github.com/teranos/attrgen/account"
	"github.com/teranos/attrgen/attribute"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// Create generates attributes for a new account.
//
// Every counter definition draws the next value from the counter service. A
// zero counter renders empty when the definition sets omit, otherwise it is
// zero-padded to the definition's digits. The changed counters are handed to
// the PatchWriter afterwards so the next process starts past them.
//
// Generated values are merged over attrs. name identifies the new account;
// when empty the "name" attribute is used.
func (c *Connector) Create(ctx context.Context, name string, attrs map[string]any) (*account.Created, error) {
	log := logger.WithSymbol(logger.LoggerFromContext(ctx).Named("connector.create"), sym.Create)
	cfg := c.counterConfig()

	if name == "" {
		name, _ = attrs[account.AttrName].(string)
	}

	out := make(map[string]any, len(attrs)+len(c.createRules))
	maps.Copy(out, attrs)

	for _, rule := range c.createRules {
		def := rule.Definition()
		renderCtx := maps.Clone(attrs)
		if renderCtx == nil {
			renderCtx = map[string]any{}
		}

		switch {
		case def.Counter:
			n, err := c.counters.Next(ctx, def.Name, cfg)
			if err != nil {
				return nil, errors.Wrapf(err, "counter %q", def.Name)
			}
			counterValue := attribute.PadNumber(n, def.Digits)
			if n == 0 && def.Omit {
				counterValue = ""
			}
			renderCtx[attribute.CounterVariable] = counterValue
		case def.Unique:
			renderCtx[attribute.CounterVariable] = ""
		}

		value, err := c.builder.Render(rule, renderCtx)
		if err != nil {
			log.Errorw("Failed to generate attribute",
				logger.FieldAttribute, def.Name,
				logger.FieldExpression, rule.Expression(),
				logger.FieldError, err)
			continue
		}
		out[def.Name] = value
	}

	patches := c.counters.PendingPatches()
	if len(patches) > 0 && c.patches != nil {
		if err := c.patches.WritePatches(ctx, patches); err != nil {
			return nil, errors.Wrap(err, "failed to persist counter patches")
		}
		log.Debugw("Counter patches written", logger.FieldCount, len(patches))
	}

	return &account.Created{
		UUID:       name,
		Identity:   name,
		Attributes: out,
	}, nil
}
