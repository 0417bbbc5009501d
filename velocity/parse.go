// Package velocity evaluates attribute expressions written in the Velocity
// reference syntax used by identity-platform transforms.
//
// Only references are supported, not directives:
//
//	$firstName.$lastName     plain references, the dot between them is text
//	${firstName}x            formal reference, delimits the name
//	$!middleName             quiet reference, renders empty when unresolved
//	$manager.name            property access into a nested map
//	\$                       a literal dollar sign
//
// A '$' that does not start a reference is copied through as text.
package velocity

import (
	"strings"

	"github.com/teranos/attrgen/errors"
)

type nodeKind int

const (
	textNode nodeKind = iota
	refNode
)

type node struct {
	kind nodeKind
	text string
	ref  reference
}

// reference is one $name[.prop...] occurrence.
type reference struct {
	root  string
	path  []string
	quiet bool
	raw   string
}

// Template is a parsed expression. It is immutable and safe for concurrent use.
type Template struct {
	expression string
	nodes      []node
}

// Expression returns the source the template was parsed from.
func (t *Template) Expression() string {
	return t.expression
}

// Parse compiles an expression into a Template.
func Parse(expression string) (*Template, error) {
	p := parser{src: expression}
	if err := p.run(); err != nil {
		return nil, errors.Mark(err, errors.ErrTemplateEvaluation)
	}
	return &Template{expression: expression, nodes: p.nodes}, nil
}

type parser struct {
	src   string
	pos   int
	text  strings.Builder
	nodes []node
}

func (p *parser) run() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\\' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '$':
			p.text.WriteByte('$')
			p.pos += 2
		case c == '$':
			ok, err := p.reference()
			if err != nil {
				return err
			}
			if !ok {
				p.text.WriteByte('$')
				p.pos++
			}
		default:
			p.text.WriteByte(c)
			p.pos++
		}
	}
	p.flushText()
	return nil
}

// reference tries to read a reference at p.pos (which holds '$').
// It returns false without consuming input when the '$' is plain text.
func (p *parser) reference() (bool, error) {
	start := p.pos
	i := start + 1
	quiet := false
	if i < len(p.src) && p.src[i] == '!' {
		quiet = true
		i++
	}

	if i < len(p.src) && p.src[i] == '{' {
		i++
		names, next := scanPath(p.src, i)
		if len(names) == 0 {
			return false, errors.Newf("expected identifier after '${' at offset %d in %q", start, p.src)
		}
		if next >= len(p.src) || p.src[next] != '}' {
			return false, errors.Newf("unterminated reference starting at offset %d in %q", start, p.src)
		}
		p.emit(reference{root: names[0], path: names[1:], quiet: quiet, raw: p.src[start : next+1]})
		p.pos = next + 1
		return true, nil
	}

	names, next := scanPath(p.src, i)
	if len(names) == 0 {
		return false, nil
	}
	p.emit(reference{root: names[0], path: names[1:], quiet: quiet, raw: p.src[start:next]})
	p.pos = next
	return true, nil
}

func (p *parser) emit(ref reference) {
	p.flushText()
	p.nodes = append(p.nodes, node{kind: refNode, ref: ref})
}

func (p *parser) flushText() {
	if p.text.Len() == 0 {
		return
	}
	p.nodes = append(p.nodes, node{kind: textNode, text: p.text.String()})
	p.text.Reset()
}

// scanPath reads ident('.' ident)* starting at i. A dot not followed by an
// identifier start ends the path and is left unconsumed.
func scanPath(src string, i int) ([]string, int) {
	var names []string
	for {
		end := scanIdent(src, i)
		if end == i {
			return names, i
		}
		names = append(names, src[i:end])
		i = end
		if i+1 < len(src) && src[i] == '.' && isIdentStart(src[i+1]) {
			i++
			continue
		}
		return names, i
	}
}

func scanIdent(src string, i int) int {
	if i >= len(src) || !isIdentStart(src[i]) {
		return i
	}
	j := i + 1
	for j < len(src) && isIdentPart(src[j]) {
		j++
	}
	return j
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '_'
}
