package sym

import (
	"testing"
	"unicode/utf8"
)

func TestSymbolToCommandAndCommandToSymbolAreBidirectional(t *testing.T) {
	for cmd, symbol := range CommandToSymbol {
		got, ok := SymbolToCommand[symbol]
		if !ok {
			t.Errorf("CommandToSymbol has %q → %q, but SymbolToCommand has no entry for %q", cmd, symbol, symbol)
			continue
		}
		if got != cmd {
			t.Errorf("bidirectional mismatch: CommandToSymbol[%q] = %q, but SymbolToCommand[%q] = %q", cmd, symbol, symbol, got)
		}
	}

	if len(SymbolToCommand) != len(CommandToSymbol) {
		t.Errorf("map size mismatch: %d vs %d (duplicate glyph?)", len(SymbolToCommand), len(CommandToSymbol))
	}
}

func TestGlyphsAreSingleRune(t *testing.T) {
	for cmd, glyph := range CommandToSymbol {
		if utf8.RuneCountInString(glyph) != 1 {
			t.Errorf("glyph for %q should be one rune, got %q", cmd, glyph)
		}
	}
}

func TestPrefix(t *testing.T) {
	if got := Prefix("list"); got != List+" " {
		t.Errorf("Prefix(list) = %q", got)
	}
	if got := Prefix("nope"); got != "" {
		t.Errorf("Prefix(nope) = %q, want empty", got)
	}
}
