package diagnostics

import (
	"sync"
	"sync/atomic"
)

// Bus dispatches diagnostics to subscriber channels. Delivery never blocks
// the emitter: a full subscriber drops the diagnostic and the drop is
// counted.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Diagnostic
	kinds       map[Kind]bool // empty means all kinds pass
	closed      bool

	sequence atomic.Uint64
	dropped  atomic.Uint64
}

// NewBus creates an open bus.
func NewBus() *Bus {
	return &Bus{kinds: make(map[Kind]bool)}
}

// SetKinds restricts delivery to the given kinds. No kinds means all.
func (b *Bus) SetKinds(kinds ...Kind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds = make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		b.kinds[k] = true
	}
}

// Subscribe returns a buffered channel receiving future diagnostics.
func (b *Bus) Subscribe(buffer int) <-chan Diagnostic {
	if buffer <= 0 {
		buffer = 50
	}
	ch := make(chan Diagnostic, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(ch <-chan Diagnostic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if (<-chan Diagnostic)(sub) == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Emit assigns a sequence id and delivers d to every subscriber.
func (b *Bus) Emit(d Diagnostic) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	if len(b.kinds) > 0 && !b.kinds[d.Kind] {
		return
	}
	d.ID = b.sequence.Add(1)
	for _, sub := range b.subscribers {
		select {
		case sub <- d:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscriber channel. Later emits are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subscribers {
		close(sub)
	}
	b.subscribers = nil
}

// BusStats holds bus counters.
type BusStats struct {
	Subscribers  int
	TotalEmitted uint64
	Dropped      uint64
}

// Stats returns current counters.
func (b *Bus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BusStats{
		Subscribers:  len(b.subscribers),
		TotalEmitted: b.sequence.Load(),
		Dropped:      b.dropped.Load(),
	}
}
