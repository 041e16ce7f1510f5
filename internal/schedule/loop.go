package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultFrameInterval is the loop period when none is configured.
const DefaultFrameInterval = 16 * time.Millisecond

// Loop is the real-time clock collaborator. It owns one goroutine (Run) on
// which both the tick handler and every job submitted through Do execute, so
// the state it drives keeps a single writer.
type Loop struct {
	clock  clock.Clock
	frame  time.Duration
	logger *zap.Logger

	slot handlerSlot
	jobs chan func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock replaces the wall clock, typically with clock.NewMock in tests.
func WithClock(c clock.Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithFrameInterval sets the tick period.
func WithFrameInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frame = d
		}
	}
}

// WithLogger attaches a logger for lifecycle messages.
func WithLogger(logger *zap.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a stopped loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		clock:  clock.New(),
		frame:  DefaultFrameInterval,
		logger: zap.NewNop(),
		jobs:   make(chan func(), 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register installs the tick handler. Only one handler may be registered at
// a time.
func (l *Loop) Register(fn TickFunc) (func(), error) {
	return l.slot.register(fn)
}

// Do queues fn to run on the loop goroutine. It returns false if the loop
// has stopped. Do blocks while the job queue is full.
func (l *Loop) Do(fn func()) bool {
	select {
	case <-l.stop:
		return false
	case <-l.done:
		return false
	default:
	}
	select {
	case l.jobs <- fn:
		return true
	case <-l.stop:
		return false
	case <-l.done:
		return false
	}
}

// Run drives the tick handler until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := l.clock.Ticker(l.frame)
	defer ticker.Stop()

	l.logger.Debug("loop started", zap.Duration("frame", l.frame))
	last := l.clock.Now()
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopped by context")
			return ctx.Err()
		case <-l.stop:
			l.logger.Debug("loop stopped")
			return nil
		case job := <-l.jobs:
			job()
		case <-ticker.C:
			now := l.clock.Now()
			delta := now.Sub(last)
			last = now
			if fn := l.slot.get(); fn != nil {
				fn(delta)
			}
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
