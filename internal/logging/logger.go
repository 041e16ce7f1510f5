// Package logging provides config-driven categorized logging for tapedeck
// on top of zap. Each category is a named child of one base logger and can
// be switched off in the logging config.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tapedeck/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config and catalog loading
	CategoryTransport  Category = "transport"  // Tape transport modes and commands
	CategoryNavigation Category = "navigation" // Page transitions and history
	CategorySchedule   Category = "schedule"   // Frame loop and deferred callbacks
	CategorySession    Category = "session"    // Session lifecycle and intents
	CategoryUI         Category = "ui"         // Terminal UI
)

// Categories lists every known category.
var Categories = []Category{
	CategoryBoot,
	CategoryTransport,
	CategoryNavigation,
	CategorySchedule,
	CategorySession,
	CategoryUI,
}

// Registry hands out category loggers.
type Registry struct {
	base    *zap.Logger
	level   zap.AtomicLevel
	cfg     config.LoggingConfig
	closeFn func()

	mu      sync.RWMutex
	loggers map[Category]*zap.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	core zapcore.Core
}

// WithCore routes output to core instead of the configured sink. The
// configured level still applies.
func WithCore(core zapcore.Core) Option {
	return func(o *options) { o.core = core }
}

// New builds a registry from the logging config.
func New(cfg config.LoggingConfig, opts ...Option) (*Registry, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := zapcore.ParseLevel(cfg.EffectiveLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	level := zap.NewAtomicLevelAt(lvl)

	r := &Registry{
		level:   level,
		cfg:     cfg,
		closeFn: func() {},
		loggers: make(map[Category]*zap.Logger),
	}

	core := o.core
	if core == nil {
		sink := zapcore.Lock(os.Stderr)
		if cfg.File != "" {
			ws, closeFn, err := zap.Open(cfg.File)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			sink, r.closeFn = ws, closeFn
		}
		core = zapcore.NewCore(encoder(cfg.Format), sink, level)
	} else {
		core = &leveledCore{Core: core, level: level}
	}

	r.base = zap.New(core)
	return r, nil
}

// Nop returns a registry that discards everything.
func Nop() *Registry {
	return &Registry{
		base:    zap.NewNop(),
		level:   zap.NewAtomicLevelAt(zapcore.FatalLevel),
		closeFn: func() {},
		loggers: make(map[Category]*zap.Logger),
	}
}

func encoder(format string) zapcore.Encoder {
	if format == "json" {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	return zapcore.NewConsoleEncoder(ec)
}

// Base returns the uncategorised logger.
func (r *Registry) Base() *zap.Logger { return r.base }

// IsCategoryEnabled returns whether a specific category is enabled.
func (r *Registry) IsCategoryEnabled(category Category) bool {
	return r.cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) the logger for category. Disabled categories
// get a no-op logger.
func (r *Registry) Get(category Category) *zap.Logger {
	if !r.IsCategoryEnabled(category) {
		return zap.NewNop()
	}

	r.mu.RLock()
	if l, ok := r.loggers[category]; ok {
		r.mu.RUnlock()
		return l
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := r.loggers[category]; ok {
		return l
	}
	l := r.base.Named(string(category))
	r.loggers[category] = l
	return l
}

// SetLevel changes the level of every category logger at runtime.
func (r *Registry) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	r.level.SetLevel(lvl)
	return nil
}

// Level returns the current level.
func (r *Registry) Level() zapcore.Level { return r.level.Level() }

// Sync flushes buffered output and closes an opened log file.
func (r *Registry) Sync() error {
	err := r.base.Sync()
	r.closeFn()
	r.closeFn = func() {}
	return err
}

// leveledCore applies the registry level to an injected core.
type leveledCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *leveledCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l) && c.Core.Enabled(l)
}

func (c *leveledCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *leveledCore) With(fields []zapcore.Field) zapcore.Core {
	return &leveledCore{Core: c.Core.With(fields), level: c.level}
}

// Timer helps measure operation duration
type Timer struct {
	logger *zap.Logger
	op     string
	start  time.Time
}

// StartTimer begins timing an operation
func (r *Registry) StartTimer(category Category, operation string) *Timer {
	return &Timer{
		logger: r.Get(category),
		op:     operation,
		start:  time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.logger.Warn(t.op+" slow", zap.Duration("elapsed", elapsed), zap.Duration("threshold", threshold))
	} else {
		t.logger.Debug(t.op+" completed", zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
