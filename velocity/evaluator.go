package velocity

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/teranos/attrgen/errors"
)

// DefaultCacheSize bounds the number of parsed expressions kept per Evaluator.
const DefaultCacheSize = 256

// Evaluator parses and renders expressions, caching parse results by
// expression string. Safe for concurrent use.
type Evaluator struct {
	cache *lru.Cache
}

// NewEvaluator creates an evaluator with an LRU parse cache of the given size.
// Sizes <= 0 use DefaultCacheSize.
func NewEvaluator(cacheSize int) *Evaluator {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		// lru.New only fails for non-positive sizes
		panic(err)
	}
	return &Evaluator{cache: cache}
}

// Template returns the parsed form of expression, from cache when possible.
func (e *Evaluator) Template(expression string) (*Template, error) {
	if cached, ok := e.cache.Get(expression); ok {
		return cached.(*Template), nil
	}
	tmpl, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	e.cache.Add(expression, tmpl)
	return tmpl, nil
}

// Evaluate renders expression against ctx.
func (e *Evaluator) Evaluate(expression string, ctx map[string]any) (string, error) {
	tmpl, err := e.Template(expression)
	if err != nil {
		return "", errors.Wrapf(err, "parse %q", expression)
	}
	out, err := tmpl.Render(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "render %q", expression)
	}
	return out, nil
}

// ReferencesVariable reports whether expression references variable.
func (e *Evaluator) ReferencesVariable(expression, variable string) (bool, error) {
	tmpl, err := e.Template(expression)
	if err != nil {
		return false, errors.Wrapf(err, "parse %q", expression)
	}
	return tmpl.References(variable), nil
}

// Len returns the number of cached templates.
func (e *Evaluator) Len() int {
	return e.cache.Len()
}

var defaultEvaluator = NewEvaluator(DefaultCacheSize)

// Evaluate renders expression against ctx using the shared evaluator.
func Evaluate(expression string, ctx map[string]any) (string, error) {
	return defaultEvaluator.Evaluate(expression, ctx)
}

// ReferencesVariable reports whether expression references variable,
// using the shared evaluator.
func ReferencesVariable(expression, variable string) (bool, error) {
	return defaultEvaluator.ReferencesVariable(expression, variable)
}
