package diagnostics

import (
	"sync"

	"github.com/gammazero/deque"
)

// Journal keeps the most recent diagnostics up to a fixed capacity. The
// TUI renders it as the event tail.
type Journal struct {
	mu       sync.Mutex
	capacity int
	entries  *deque.Deque[Diagnostic]
}

// NewJournal returns a journal holding at most capacity entries.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &Journal{
		capacity: capacity,
		entries:  deque.New[Diagnostic](capacity),
	}
}

// Emit appends d, evicting the oldest entry when full.
func (j *Journal) Emit(d Diagnostic) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.entries.Len() == j.capacity {
		j.entries.PopFront()
	}
	j.entries.PushBack(d)
}

// Recent returns up to n entries, oldest first.
func (j *Journal) Recent(n int) []Diagnostic {
	j.mu.Lock()
	defer j.mu.Unlock()
	size := j.entries.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]Diagnostic, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, j.entries.At(i))
	}
	return out
}

// Len returns the number of retained entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries.Len()
}
