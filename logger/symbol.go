package logger

import "go.uber.org/zap"

// WithSymbol tags every line of l with an operation glyph as a structured
// field, keeping it out of the message text so logs stay queryable by glyph.
//
//	log := logger.WithSymbol(logger.ComponentLogger("connector.list"), sym.List)
//	log.Infow("List run complete", logger.FieldCount, n)
func WithSymbol(l *zap.SugaredLogger, glyph string) *zap.SugaredLogger {
	if l == nil {
		l = Logger
	}
	return l.With(FieldSymbol, glyph)
}
