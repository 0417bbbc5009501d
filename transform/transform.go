// Package transform post-processes rendered attribute values.
//
// The pipeline order is fixed: case conversion, then whitespace removal,
// then normalization. Callers must not reorder the steps; the output of
// Apply is pinned by tests.
package transform

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CaseMode selects the case conversion applied to a value.
type CaseMode string

const (
	Lower      CaseMode = "lower"
	Upper      CaseMode = "upper"
	Capitalize CaseMode = "capitalize"
	Same       CaseMode = "same"
)

// Valid reports whether m is one of the known modes. The empty mode is
// accepted and behaves as Same.
func (m CaseMode) Valid() bool {
	switch m {
	case Lower, Upper, Capitalize, Same, "":
		return true
	}
	return false
}

// Apply runs the pipeline: case → space removal → normalization.
func Apply(value string, mode CaseMode, stripSpaces, normalize bool) string {
	value = SwitchCase(value, mode)
	if stripSpaces {
		value = RemoveSpaces(value)
	}
	if normalize {
		value = Normalize(value)
	}
	return value
}

// SwitchCase converts value according to mode. Unknown modes return value unchanged.
func SwitchCase(value string, mode CaseMode) string {
	switch mode {
	case Lower:
		return cases.Lower(language.Und).String(value)
	case Upper:
		return cases.Upper(language.Und).String(value)
	case Capitalize:
		return capitalize(value)
	default:
		return value
	}
}

// capitalize uppercases the first character of every space-delimited token
// and leaves everything else untouched.
func capitalize(value string) string {
	upper := cases.Upper(language.Und)
	words := strings.Split(value, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		first, rest := splitFirstRune(word)
		words[i] = upper.String(first) + rest
	}
	return strings.Join(words, " ")
}

func splitFirstRune(s string) (string, string) {
	for i := range s {
		if i > 0 {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// RemoveSpaces strips every Unicode whitespace character.
func RemoveSpaces(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}

// Normalize transliterates value towards ASCII and removes apostrophes.
// Marks are stripped first so accented Latin keeps its base letter; every
// remaining non-ASCII rune goes through unidecode on its own, which keeps
// the word boundaries of the input. Runes unidecode has no mapping for are
// kept as they are.
func Normalize(value string) string {
	stripped, _, err := transform.String(stripMarks(), value)
	if err != nil {
		stripped = value
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if r < utf8.RuneSelf {
			if !isApostrophe(r) {
				b.WriteRune(r)
			}
			continue
		}
		if isApostrophe(r) {
			continue
		}
		ascii := strings.TrimSpace(unidecode.Unidecode(string(r)))
		if ascii == "" && !unicode.IsSpace(r) {
			b.WriteRune(r)
			continue
		}
		if ascii == "" {
			b.WriteByte(' ')
			continue
		}
		// soft and hard signs come back as apostrophes
		b.WriteString(strings.Map(func(c rune) rune {
			if isApostrophe(c) {
				return -1
			}
			return c
		}, ascii))
	}
	return b.String()
}

// stripMarks decomposes, drops combining marks and recomposes.
// Transformers carry state, so one is built per call (same for casers).
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ':
		return true
	}
	return false
}
