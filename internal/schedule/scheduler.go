// Package schedule provides the cancellable deferred-task primitives and the
// clock collaborators that drive a deck session.
//
// All tasks run on the caller's goroutine from inside Advance. Nothing in
// this package blocks and nothing starts goroutines except Loop.
package schedule

import (
	"container/heap"
	"time"
)

// Task is a handle to a deferred callback.
type Task struct {
	name     string
	deadline time.Duration
	seq      uint64
	fn       func()
	state    taskState
	index    int
}

type taskState int

const (
	taskPending taskState = iota
	taskFired
	taskCancelled
)

// Name returns the label the task was scheduled with.
func (t *Task) Name() string { return t.name }

// Deadline returns the scheduler time at which the task fires.
func (t *Task) Deadline() time.Duration { return t.deadline }

// Pending reports whether the task has neither fired nor been cancelled.
func (t *Task) Pending() bool { return t != nil && t.state == taskPending }

// Cancel stops the task from firing. It returns true if the task was still
// pending. Cancelling a fired or cancelled task is a no-op.
func (t *Task) Cancel() bool {
	if t == nil || t.state != taskPending {
		return false
	}
	t.state = taskCancelled
	t.fn = nil
	return true
}

// Scheduler is a virtual monotonic clock with a deadline-ordered task queue.
// The zero value is not usable; call NewScheduler.
type Scheduler struct {
	now   time.Duration
	seq   uint64
	queue taskQueue
}

// NewScheduler returns a scheduler whose clock starts at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current scheduler time.
func (s *Scheduler) Now() time.Duration { return s.now }

// After schedules fn to run once the clock has advanced by delay.
// Negative delays are treated as zero.
func (s *Scheduler) After(name string, delay time.Duration, fn func()) *Task {
	if delay < 0 {
		delay = 0
	}
	s.seq++
	t := &Task{
		name:     name,
		deadline: s.now + delay,
		seq:      s.seq,
		fn:       fn,
	}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock forward by delta and runs every task whose
// deadline falls inside the window, in deadline order. The clock is set to
// each task's deadline before it runs, so callbacks observe the time they
// were due. Tasks scheduled by a callback run in the same call if they fall
// inside the window.
func (s *Scheduler) Advance(delta time.Duration) int {
	if delta < 0 {
		delta = 0
	}
	target := s.now + delta
	fired := 0
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.state != taskPending {
			heap.Pop(&s.queue)
			continue
		}
		if next.deadline > target {
			break
		}
		heap.Pop(&s.queue)
		s.now = next.deadline
		fn := next.fn
		next.state = taskFired
		next.fn = nil
		fired++
		if fn != nil {
			fn()
		}
	}
	s.now = target
	return fired
}

// Pending returns the number of tasks still waiting to fire.
func (s *Scheduler) Pending() int {
	n := 0
	for _, t := range s.queue {
		if t.state == taskPending {
			n++
		}
	}
	return n
}

// taskQueue implements heap.Interface ordered by deadline, then by
// scheduling order.
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].deadline != q[j].deadline {
		return q[i].deadline < q[j].deadline
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
