// Package diagnostics is the observability sink of the deck engine.
// Every rejected transition, watchdog cancellation and mode change is
// emitted as a Diagnostic carrying a kind and structured context.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	KindModeChange          Kind = "mode_change"
	KindTransitionRejected  Kind = "transition_rejected"
	KindPositionRejected    Kind = "position_rejected"
	KindLoadComplete        Kind = "load_complete"
	KindLoadAborted         Kind = "load_aborted"
	KindNavigationRejected  Kind = "navigation_rejected"
	KindLookupFailed        Kind = "lookup_failed"
	KindTransitionStarted   Kind = "transition_started"
	KindTransitionPhase     Kind = "transition_phase"
	KindTransitionCompleted Kind = "transition_completed"
	KindTransitionCancelled Kind = "transition_cancelled"
	KindWatchdogCancel      Kind = "watchdog_cancel"
	KindTaskCancelled       Kind = "task_cancelled"
	KindTickReentry         Kind = "tick_reentry"
	KindCatalogReloaded     Kind = "catalog_reloaded"
)

// Severity is the level a diagnostic is reported at.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// Severity returns the default level for the kind. Rejections, aborts and
// forced recoveries are warnings.
func (k Kind) Severity() Severity {
	switch k {
	case KindTransitionRejected, KindPositionRejected, KindLoadAborted,
		KindNavigationRejected, KindLookupFailed, KindWatchdogCancel,
		KindTickReentry:
		return SeverityWarn
	case KindTransitionPhase, KindTaskCancelled:
		return SeverityDebug
	default:
		return SeverityInfo
	}
}

// Fields is the structured context attached to a diagnostic.
type Fields map[string]any

// Diagnostic is one structured event.
type Diagnostic struct {
	ID       uint64
	Kind     Kind
	Severity Severity
	Source   string
	Message  string
	Fields   Fields
	// At is the scheduler time the diagnostic was raised at.
	At time.Duration
}

// New builds a diagnostic with the kind's default severity.
func New(kind Kind, source, message string, fields Fields) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: kind.Severity(),
		Source:   source,
		Message:  message,
		Fields:   fields,
	}
}

// String renders the diagnostic on one line with sorted fields.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s/%s: %s", d.Severity, d.Source, d.Kind, d.Message)
	if len(d.Fields) > 0 {
		keys := make([]string, 0, len(d.Fields))
		for k := range d.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, d.Fields[k])
		}
	}
	return b.String()
}
