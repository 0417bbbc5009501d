// Package attribute turns attribute definitions into account attribute values.
//
// A Definition is the declarative rule from configuration. Compile derives a
// Rule from each one, fixing the effective expression for the whole run, and
// a Builder renders rules against identity attributes, resolving collisions
// for unique attributes by advancing a counter.
package attribute

import (
	"strings"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/transform"
	"github.com/teranos/attrgen/velocity"
)

// CounterVariable is the render-context key holding the padded counter.
const CounterVariable = "counter"

// Definition describes how to compute one account attribute.
type Definition struct {
	Name       string             `mapstructure:"name" toml:"name" json:"name" yaml:"name"`
	Expression string             `mapstructure:"expression" toml:"expression" json:"expression" yaml:"expression"`
	Case       transform.CaseMode `mapstructure:"case" toml:"case" json:"case" yaml:"case"`
	Spaces     bool               `mapstructure:"spaces" toml:"spaces" json:"spaces" yaml:"spaces"`
	Normalize  bool               `mapstructure:"normalize" toml:"normalize" json:"normalize" yaml:"normalize"`
	Counter    bool               `mapstructure:"counter" toml:"counter" json:"counter" yaml:"counter"`
	Digits     int                `mapstructure:"digits" toml:"digits" json:"digits" yaml:"digits"`
	Unique     bool               `mapstructure:"unique" toml:"unique" json:"unique" yaml:"unique"`
	Refresh    bool               `mapstructure:"refresh" toml:"refresh" json:"refresh" yaml:"refresh"`
	Omit       bool               `mapstructure:"omit" toml:"omit,omitempty" json:"omit,omitempty" yaml:"omit,omitempty"` // create flow: a zero counter renders empty
}

// Validate checks a single definition in isolation.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("attribute name cannot be empty")
	}
	if d.Expression == "" {
		return errors.Newf("attribute %q: expression cannot be empty", d.Name)
	}
	if !d.Case.Valid() {
		return errors.WithHint(
			errors.Newf("attribute %q: unknown case %q", d.Name, d.Case),
			"use one of lower, upper, capitalize, same",
		)
	}
	if d.Digits < 0 {
		return errors.Newf("attribute %q: digits must be >= 0, got %d", d.Name, d.Digits)
	}
	if _, err := velocity.Parse(d.Expression); err != nil {
		return errors.Wrapf(err, "attribute %q", d.Name)
	}
	if (d.Unique || d.Counter) && escapesCounter(d.Expression) {
		return errTrailingBackslash(d.Name)
	}
	return nil
}

// escapesCounter reports whether appending "$counter" to expression would
// produce an escaped literal instead of a reference.
func escapesCounter(expression string) bool {
	return strings.HasSuffix(expression, `\`)
}

func errTrailingBackslash(name string) error {
	return errors.WithHint(
		errors.Newf("attribute %q: expression ends with a backslash, which would escape the counter", name),
		"remove the trailing backslash or reference ${counter} explicitly",
	)
}

// Rule is a Definition prepared for one run. Its effective expression is
// fixed at compile time and never changes afterwards.
type Rule struct {
	def        Definition
	expression string
}

// Definition returns a copy of the definition the rule was compiled from.
func (r *Rule) Definition() Definition {
	return r.def
}

// Name returns the attribute name.
func (r *Rule) Name() string {
	return r.def.Name
}

// Expression returns the effective expression. For unique attributes it
// always references the counter.
func (r *Rule) Expression() string {
	return r.expression
}

// WithCounter returns a copy of the rule whose effective expression is
// guaranteed to reference $counter.
func (r *Rule) WithCounter(evaluator *velocity.Evaluator) *Rule {
	return &Rule{def: r.def, expression: EnsureCounter(r.expression, evaluator)}
}

// NeedsValue reports whether the attribute must be (re)computed for an
// account holding the given attributes.
func (r *Rule) NeedsValue(account map[string]any) bool {
	if r.def.Refresh {
		return true
	}
	return isEmpty(account[r.def.Name])
}

// Compile prepares definitions for a run. Unique definitions whose expression
// does not reference $counter get it appended to the effective expression.
// Definitions are copied; the input slice is not modified.
func Compile(defs []Definition, evaluator *velocity.Evaluator) ([]*Rule, error) {
	seen := make(map[string]bool, len(defs))
	rules := make([]*Rule, 0, len(defs))

	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return nil, errors.New("attribute name cannot be empty")
		}
		if seen[def.Name] {
			return nil, errors.Newf("duplicate attribute definition %q", def.Name)
		}
		seen[def.Name] = true

		rule := &Rule{def: def, expression: def.Expression}
		if def.Unique && escapesCounter(def.Expression) {
			return nil, errTrailingBackslash(def.Name)
		}
		if def.Unique {
			rule.expression = EnsureCounter(def.Expression, evaluator)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

// EnsureCounter returns expression with "$counter" appended when it does not
// already reference the counter. Unparseable expressions are returned as-is;
// they fail later, at evaluation time, for each identity.
func EnsureCounter(expression string, evaluator *velocity.Evaluator) string {
	has, err := evaluator.ReferencesVariable(expression, CounterVariable)
	if err != nil || has {
		return expression
	}
	return expression + "$" + CounterVariable
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}
