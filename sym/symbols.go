// Package sym defines the glyphs attrgen prints in CLI output and attaches
// to log lines, one per connector operation.
package sym

// Operation glyphs.
const (
	AM      = "≡" // configuration
	List    = "⋈" // account list (batch generation)
	Read    = "⍟" // single account read
	Create  = "+" // account creation
	Counter = "#" // counter state and patches
	Schema  = "▤" // account schema discovery
	DB      = "⊔" // database/storage layer
)

// CommandToSymbol maps CLI commands to their glyph.
var CommandToSymbol = map[string]string{
	"am":       AM,
	"list":     List,
	"read":     Read,
	"create":   Create,
	"counters": Counter,
	"schema":   Schema,
	"db":       DB,
}

// SymbolToCommand is the inverse of CommandToSymbol.
var SymbolToCommand = func() map[string]string {
	m := make(map[string]string, len(CommandToSymbol))
	for cmd, glyph := range CommandToSymbol {
		m[glyph] = cmd
	}
	return m
}()

// Prefix returns "<glyph> " for a command, or "" when the command has none.
func Prefix(command string) string {
	if glyph, ok := CommandToSymbol[command]; ok {
		return glyph + " "
	}
	return ""
}
