package velocity

import (
	"fmt"
	"strings"

	"github.com/teranos/attrgen/errors"
)

// Render evaluates the template against ctx.
// A non-quiet reference that cannot be resolved fails the whole render.
func (t *Template) Render(ctx map[string]any) (string, error) {
	var b strings.Builder
	for _, n := range t.nodes {
		if n.kind == textNode {
			b.WriteString(n.text)
			continue
		}

		value, ok := n.ref.resolve(ctx)
		if !ok {
			if n.ref.quiet {
				continue
			}
			return "", errors.Mark(
				errors.Newf("unresolved reference %s", n.ref.raw),
				errors.ErrTemplateEvaluation,
			)
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// References reports whether any reference in the template is rooted at name.
func (t *Template) References(name string) bool {
	for _, n := range t.nodes {
		if n.kind == refNode && n.ref.root == name {
			return true
		}
	}
	return false
}

func (r reference) resolve(ctx map[string]any) (string, bool) {
	value, ok := ctx[r.root]
	if !ok {
		return "", false
	}
	for _, key := range r.path {
		value, ok = lookup(value, key)
		if !ok {
			return "", false
		}
	}
	return stringify(value)
}

func lookup(container any, key string) (any, bool) {
	switch m := container.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	default:
		return nil, false
	}
}

func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	case float64:
		// JSON numbers decode as float64; render integral ones without exponent
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v)), true
		}
		return fmt.Sprint(v), true
	default:
		return fmt.Sprint(v), true
	}
}
