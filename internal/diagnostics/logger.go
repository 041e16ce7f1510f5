package diagnostics

import (
	"sort"

	"go.uber.org/zap"
)

// Logger forwards diagnostics to a zap logger, one entry per diagnostic,
// at the diagnostic's severity.
type Logger struct {
	logger *zap.Logger
}

// NewLogger wraps logger. A nil logger discards.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// Emit writes d.
func (l *Logger) Emit(d Diagnostic) {
	fields := make([]zap.Field, 0, len(d.Fields)+3)
	fields = append(fields,
		zap.String("kind", string(d.Kind)),
		zap.String("source", d.Source),
		zap.Duration("at", d.At),
	)
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, d.Fields[k]))
	}

	switch d.Severity {
	case SeverityWarn:
		l.logger.Warn(d.Message, fields...)
	case SeverityDebug:
		l.logger.Debug(d.Message, fields...)
	default:
		l.logger.Info(d.Message, fields...)
	}
}
