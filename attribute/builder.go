package attribute

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/transform"
	"github.com/teranos/attrgen/velocity"
)

// DefaultMaxAttempts bounds the uniqueness retry loop.
const DefaultMaxAttempts = 1000

// CounterFunc yields the next counter value each time it is called.
type CounterFunc func() int64

// CounterSource hands out the counter to use for a rule.
type CounterSource func(rule *Rule) CounterFunc

// Builder renders rules into attribute values.
type Builder struct {
	evaluator   *velocity.Evaluator
	maxAttempts int
	logger      *zap.SugaredLogger
}

// NewBuilder creates a builder. maxAttempts <= 0 uses DefaultMaxAttempts.
func NewBuilder(evaluator *velocity.Evaluator, maxAttempts int) *Builder {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Builder{
		evaluator:   evaluator,
		maxAttempts: maxAttempts,
		logger:      logger.ComponentLogger("attribute.builder"),
	}
}

// Evaluator returns the evaluator used by the builder.
func (b *Builder) Evaluator() *velocity.Evaluator {
	return b.evaluator
}

// Build computes one attribute value.
//
// For counter rules the padded next counter is injected as $counter. For
// unique rules the first attempt renders with an empty counter; while the
// result collides with used, the counter is advanced and the value
// re-rendered, at most maxAttempts times. The final value is added to used.
// A nil used set disables uniqueness resolution.
//
// Failures leave the attribute without a value and are reported as
// ErrMissingCounterSource, ErrTemplateEvaluation or ErrUniquenessExhausted.
func (b *Builder) Build(rule *Rule, attrs map[string]any, next CounterFunc, used *ValueSet) (string, error) {
	def := rule.def
	ctx := newContext(attrs)

	if def.Counter {
		if next == nil {
			return "", errors.Wrapf(errors.ErrMissingCounterSource, "attribute %q", def.Name)
		}
		ctx[CounterVariable] = PadNumber(next(), def.Digits)
	}

	if def.Unique {
		ctx[CounterVariable] = ""
	}

	value, err := b.render(rule, ctx)
	if err != nil {
		return "", err
	}

	if !def.Unique || used == nil {
		return value, nil
	}

	attempts := 0
	for used.Contains(value) {
		if next == nil {
			return "", errors.WithHint(
				errors.Wrapf(errors.ErrMissingCounterSource, "attribute %q: value %q collides", def.Name, value),
				"unique attributes need a counter to resolve collisions",
			)
		}
		if attempts >= b.maxAttempts {
			return "", errors.Wrapf(errors.ErrUniquenessExhausted,
				"attribute %q: no free value after %d attempts (last %q)", def.Name, attempts, value)
		}
		attempts++

		ctx[CounterVariable] = PadNumber(next(), def.Digits)
		value, err = b.render(rule, ctx)
		if err != nil {
			return "", err
		}
	}

	if attempts > 0 {
		b.logger.Debugw("Resolved unique value",
			logger.FieldAttribute, def.Name,
			logger.FieldValue, value,
			logger.FieldAttempts, attempts)
	}
	used.Add(value)
	return value, nil
}

// render evaluates the effective expression and applies the transform pipeline.
func (b *Builder) render(rule *Rule, ctx map[string]any) (string, error) {
	def := rule.def

	raw, err := b.evaluator.Evaluate(rule.expression, ctx)
	if err != nil {
		return "", errors.Wrapf(err, "attribute %q", def.Name)
	}
	if raw == "" {
		return "", errors.Wrapf(errors.ErrTemplateEvaluation, "attribute %q: expression rendered empty", def.Name)
	}

	b.logger.Debugw("Template evaluation result",
		logger.FieldAttribute, def.Name,
		"raw_value", raw)

	value := transform.Apply(raw, def.Case, def.Spaces, def.Normalize)

	b.logger.Debugw("Final attribute value after transformations",
		logger.FieldAttribute, def.Name,
		logger.FieldValue, value,
		"case", def.Case,
		"spaces", def.Spaces,
		"normalize", def.Normalize)

	return value, nil
}

// BuildAccountAttributes computes every rule for one identity. Rules that
// fail are logged and left out of the result.
func (b *Builder) BuildAccountAttributes(rules []*Rule, attrs map[string]any, counters CounterSource, used map[string]*ValueSet) map[string]string {
	values := make(map[string]string, len(rules))
	for _, rule := range rules {
		var next CounterFunc
		if counters != nil {
			next = counters(rule)
		}

		value, err := b.Build(rule, attrs, next, used[rule.Name()])
		if err != nil {
			b.logger.Errorw("Failed to build attribute",
				logger.FieldAttribute, rule.Name(),
				logger.FieldExpression, rule.Expression(),
				logger.FieldError, err)
			continue
		}
		values[rule.Name()] = value
	}
	return values
}

// Render evaluates rule once against attrs and applies the transform
// pipeline. Counter and uniqueness handling are left to the caller, who binds
// $counter in attrs when the expression needs it.
func (b *Builder) Render(rule *Rule, attrs map[string]any) (string, error) {
	return b.render(rule, newContext(attrs))
}

// BuildSingleAttribute computes one rule without uniqueness resolution.
func (b *Builder) BuildSingleAttribute(rule *Rule, attrs map[string]any, next CounterFunc) (string, error) {
	return b.Build(rule, attrs, next, nil)
}

// PadNumber left-pads the decimal form of n with zeros to width characters.
// Longer numbers are returned whole.
func PadNumber(n int64, width int) string {
	s := strconv.FormatInt(n, 10)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// newContext copies identity attributes into a fresh render context.
func newContext(attrs map[string]any) map[string]any {
	ctx := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		ctx[k] = v
	}
	return ctx
}
