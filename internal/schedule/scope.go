package schedule

import "time"

// Scope groups the tasks owned by one component so they can be released
// together when the component resets or tears down.
type Scope struct {
	name     string
	sched    *Scheduler
	tasks    []*Task
	released bool
}

// NewScope creates a scope that schedules onto sched.
func NewScope(name string, sched *Scheduler) *Scope {
	return &Scope{name: name, sched: sched}
}

// Name returns the scope label.
func (s *Scope) Name() string { return s.name }

// After schedules fn on the underlying scheduler and tracks the task.
// A released scope returns nil and schedules nothing.
func (s *Scope) After(name string, delay time.Duration, fn func()) *Task {
	if s.released {
		return nil
	}
	s.prune()
	t := s.sched.After(name, delay, fn)
	s.tasks = append(s.tasks, t)
	return t
}

// Pending returns the tracked tasks that have not fired or been cancelled.
func (s *Scope) Pending() []*Task {
	var out []*Task
	for _, t := range s.tasks {
		if t.Pending() {
			out = append(out, t)
		}
	}
	return out
}

// CancelAll cancels every pending task and returns their names. The scope
// stays usable.
func (s *Scope) CancelAll() []string {
	var names []string
	for _, t := range s.tasks {
		if t.Cancel() {
			names = append(names, t.name)
		}
	}
	clear(s.tasks)
	s.tasks = s.tasks[:0]
	return names
}

// Release cancels every pending task and refuses further scheduling.
func (s *Scope) Release() []string {
	names := s.CancelAll()
	s.released = true
	return names
}

// Released reports whether Release has been called.
func (s *Scope) Released() bool { return s.released }

func (s *Scope) prune() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if t.Pending() {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}
