package diagnostics

import "sync"

// Sink receives diagnostics. Emit must not block.
type Sink interface {
	Emit(Diagnostic)
}

// Func adapts a function to a Sink.
type Func func(Diagnostic)

// Emit calls f.
func (f Func) Emit(d Diagnostic) { f(d) }

// Discard drops everything.
var Discard Sink = Func(func(Diagnostic) {})

// Multi fans a diagnostic out to several sinks in order. Nil sinks are
// skipped.
func Multi(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return multi(live)
}

type multi []Sink

func (m multi) Emit(d Diagnostic) {
	for _, s := range m {
		s.Emit(d)
	}
}

// WithFields returns a sink that merges extra into every diagnostic's
// fields before forwarding. Existing keys win.
func WithFields(next Sink, extra Fields) Sink {
	return Func(func(d Diagnostic) {
		merged := make(Fields, len(d.Fields)+len(extra))
		for k, v := range extra {
			merged[k] = v
		}
		for k, v := range d.Fields {
			merged[k] = v
		}
		d.Fields = merged
		next.Emit(d)
	})
}

// Recorder keeps every diagnostic in memory. Used by tests and the script
// runner.
type Recorder struct {
	mu  sync.Mutex
	all []Diagnostic
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Emit records d.
func (r *Recorder) Emit(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, d)
}

// All returns a copy of everything recorded.
func (r *Recorder) All() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Diagnostic{}, r.all...)
}

// OfKind returns the recorded diagnostics with the given kind.
func (r *Recorder) OfKind(kind Kind) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.all {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many diagnostics of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	return len(r.OfKind(kind))
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
