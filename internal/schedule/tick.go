package schedule

import (
	"errors"
	"sync"
	"time"
)

// TickFunc is the periodic callback a clock collaborator invokes with the
// time elapsed since the previous call.
type TickFunc func(delta time.Duration)

// ErrHandlerRegistered is returned when a source already has a tick handler.
var ErrHandlerRegistered = errors.New("schedule: tick handler already registered")

// TickSource is a clock collaborator that accepts exactly one tick handler.
type TickSource interface {
	Register(fn TickFunc) (unregister func(), err error)
}

// handlerSlot holds the single registered handler of a tick source.
type handlerSlot struct {
	mu sync.Mutex
	fn TickFunc
	id uint64
}

func (h *handlerSlot) register(fn TickFunc) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fn != nil {
		return nil, ErrHandlerRegistered
	}
	h.id++
	id := h.id
	h.fn = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.id == id {
			h.fn = nil
		}
	}, nil
}

func (h *handlerSlot) get() TickFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fn
}

// Manual is a tick source fired explicitly by its owner. The TUI fires it
// from its frame messages and the script runner fires it with a fixed step.
type Manual struct {
	slot handlerSlot
}

// NewManual returns a manual tick source.
func NewManual() *Manual { return &Manual{} }

// Register installs the tick handler.
func (m *Manual) Register(fn TickFunc) (func(), error) {
	return m.slot.register(fn)
}

// Fire invokes the registered handler once. It reports false when no
// handler is registered.
func (m *Manual) Fire(delta time.Duration) bool {
	fn := m.slot.get()
	if fn == nil {
		return false
	}
	fn(delta)
	return true
}
