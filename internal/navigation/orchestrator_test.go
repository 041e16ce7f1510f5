package navigation

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapedeck/internal/diagnostics"
	"tapedeck/internal/pages"
	"tapedeck/internal/schedule"
	"tapedeck/internal/transport"
)

// recordingCommander logs every command it receives.
type recordingCommander struct {
	calls []string
}

func (r *recordingCommander) SetPosition(seconds float64) {
	r.calls = append(r.calls, fmt.Sprintf("position %.0f", seconds))
}

func (r *recordingCommander) SetMode(target transport.Mode) bool {
	r.calls = append(r.calls, "mode "+target.String())
	return true
}

func (r *recordingCommander) SetModeAfter(delay time.Duration, target transport.Mode) {
	r.calls = append(r.calls, fmt.Sprintf("mode %s after %s", target, delay))
}

func (r *recordingCommander) SetTransition(active bool, progress float64) {
	r.calls = append(r.calls, fmt.Sprintf("transition %t %.2f", active, progress))
}

func (r *recordingCommander) reset() { r.calls = nil }

type fixture struct {
	sched *schedule.Scheduler
	rec   *diagnostics.Recorder
	cmd   *recordingCommander
	nav   *Orchestrator
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		sched: schedule.NewScheduler(),
		rec:   diagnostics.NewRecorder(),
		cmd:   &recordingCommander{},
	}
	f.nav = New(NewState("index", 0), pages.DefaultCatalog(), f.cmd, f.sched, f.rec, cfg)
	t.Cleanup(f.nav.Close)
	return f
}

// run advances the clock in frame steps, syncing after each one.
func (f *fixture) run(total, frame time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		f.sched.Advance(frame)
		f.nav.Tick(frame)
	}
}

func (f *fixture) arrive(t *testing.T) {
	t.Helper()
	f.run(f.nav.Config().Duration, 50*time.Millisecond)
	require.True(t, f.nav.Idle())
}

func TestNavigateTo_StartsForwardTransition(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.nav.NavigateTo("work"))

	s := f.nav.Snapshot()
	assert.Equal(t, FwdStart, s.Transition)
	assert.Equal(t, "work", s.TargetPageID)
	assert.Equal(t, 120.0, s.TargetPosition)
	assert.Equal(t, Forward, s.Direction)
	assert.Equal(t, []string{"index", "work"}, s.History)
	assert.Equal(t, 1, s.HistoryIndex)
	assert.Equal(t, "index", s.CurrentPageID)
	assert.Equal(t, []string{"transition true 0.00"}, f.cmd.calls)
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindTransitionStarted))
}

func TestNavigateTo_CurrentPageIsNoop(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	before := f.nav.Snapshot()

	assert.False(t, f.nav.NavigateTo("index"))
	assert.Equal(t, before, f.nav.Snapshot())
	assert.Empty(t, f.cmd.calls)
}

func TestNavigateTo_DroppedWhileInFlight(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	before := f.nav.Snapshot()

	assert.False(t, f.nav.NavigateTo("notes"))
	assert.False(t, f.nav.GoBack())
	assert.False(t, f.nav.JumpTo("contact"))

	assert.Equal(t, before, f.nav.Snapshot())
	assert.Equal(t, 3, f.rec.Count(diagnostics.KindNavigationRejected))
}

func TestNavigateTo_UnknownPage(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	before := f.nav.Snapshot()

	assert.False(t, f.nav.NavigateTo("missing"))
	assert.Equal(t, before, f.nav.Snapshot())
	require.Len(t, f.rec.OfKind(diagnostics.KindLookupFailed), 1)
	assert.Equal(t, "missing", f.rec.OfKind(diagnostics.KindLookupFailed)[0].Fields["page"])
}

func TestTick_PhasesFollowThresholds(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))

	steps := []struct {
		advance time.Duration
		want    TransitionState
	}{
		{100 * time.Millisecond, FwdStart},
		{200 * time.Millisecond, FwdSeek},   // 300ms = 0.2
		{600 * time.Millisecond, FwdSeek},   // 900ms = 0.6
		{300 * time.Millisecond, FwdArrive}, // 1200ms = 0.8
		{200 * time.Millisecond, FwdArrive},
		{100 * time.Millisecond, Idle},
	}
	for _, step := range steps {
		f.sched.Advance(step.advance)
		f.nav.Tick(step.advance)
		assert.Equal(t, step.want, f.nav.Snapshot().Transition, "at %s", f.sched.Now())
	}
	assert.Equal(t, "work", f.nav.Snapshot().CurrentPageID)
}

func TestTick_PhaseNeverRegresses(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))

	last := f.nav.Snapshot().Transition.Phase()
	for !f.nav.Idle() {
		f.sched.Advance(37 * time.Millisecond)
		f.nav.Tick(37 * time.Millisecond)
		s := f.nav.Snapshot()
		if s.Transition == Idle {
			break
		}
		assert.GreaterOrEqual(t, s.Transition.Phase(), last)
		assert.GreaterOrEqual(t, s.Progress, 0.0)
		assert.LessOrEqual(t, s.Progress, 1.0)
		last = s.Transition.Phase()
	}
	assert.Equal(t, 2, f.rec.Count(diagnostics.KindTransitionPhase))
}

func TestArrival_CommandOrder(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	f.cmd.reset()

	f.sched.Advance(1500 * time.Millisecond)
	f.nav.Tick(1500 * time.Millisecond)

	want := []string{
		"position 120",
		"mode Playing",
		"mode Paused after 300ms",
		"transition false 0.00",
	}
	if diff := cmp.Diff(want, f.cmd.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	s := f.nav.Snapshot()
	assert.Equal(t, Idle, s.Transition)
	assert.Equal(t, "work", s.CurrentPageID)
	assert.Equal(t, 120.0, s.CurrentPosition)
	assert.Empty(t, s.TargetPageID)
	assert.Zero(t, s.Progress)
}

func TestHistory_BackThenNavigateDiscardsForward(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.nav.NavigateTo("work"))
	f.arrive(t)
	require.True(t, f.nav.NavigateTo("notes"))
	f.arrive(t)
	require.True(t, f.nav.GoBack())
	assert.Equal(t, BwdStart, f.nav.Snapshot().Transition)
	f.arrive(t)
	require.True(t, f.nav.NavigateTo("contact"))
	f.arrive(t)

	s := f.nav.Snapshot()
	assert.Equal(t, []string{"index", "work", "contact"}, s.History)
	assert.Equal(t, 2, s.HistoryIndex)
	assert.Equal(t, "contact", s.History[s.HistoryIndex])
	assert.False(t, f.nav.CanGoForward())
	assert.True(t, f.nav.CanGoBack())
}

func TestHistory_GoForward(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	f.arrive(t)
	require.True(t, f.nav.GoBack())
	f.arrive(t)
	require.True(t, f.nav.CanGoForward())

	require.True(t, f.nav.GoForward())
	assert.Equal(t, FwdStart, f.nav.Snapshot().Transition)
	f.arrive(t)

	s := f.nav.Snapshot()
	assert.Equal(t, "work", s.CurrentPageID)
	assert.Equal(t, 1, s.HistoryIndex)
	assert.False(t, f.nav.GoForward())
}

func TestHistory_BoundsRejected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.False(t, f.nav.CanGoBack())
	assert.False(t, f.nav.CanGoForward())
	assert.False(t, f.nav.GoBack())
	assert.False(t, f.nav.GoForward())
	assert.Equal(t, 2, f.rec.Count(diagnostics.KindNavigationRejected))
}

func TestCancel_KeepsHistoryAndCommittedPage(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	f.run(600*time.Millisecond, 100*time.Millisecond)

	require.True(t, f.nav.CancelTransition())
	s := f.nav.Snapshot()
	assert.Equal(t, Idle, s.Transition)
	assert.Empty(t, s.TargetPageID)
	assert.Equal(t, "index", s.CurrentPageID)
	assert.Zero(t, s.CurrentPosition)
	assert.Equal(t, []string{"index", "work"}, s.History)
	assert.Equal(t, 1, s.HistoryIndex)
	assert.False(t, f.nav.CancelTransition())
}

func TestCancel_RetryCollapsesDuplicateTail(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	require.True(t, f.nav.CancelTransition())

	require.True(t, f.nav.NavigateTo("work"))
	assert.Equal(t, []string{"index", "work", "work"}, f.nav.Snapshot().History)
	f.arrive(t)

	s := f.nav.Snapshot()
	assert.Equal(t, []string{"index", "work"}, s.History)
	assert.Equal(t, 1, s.HistoryIndex)
}

func TestGoBack_OntoCurrentPageMovesIndexOnly(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	require.True(t, f.nav.CancelTransition())
	f.cmd.reset()

	require.True(t, f.nav.GoBack())
	s := f.nav.Snapshot()
	assert.Equal(t, Idle, s.Transition)
	assert.Equal(t, 0, s.HistoryIndex)
	assert.Empty(t, f.cmd.calls)
}

func TestJumpTo_FamilyByPosition(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.nav.JumpTo("notes"))
	assert.Equal(t, FwdStart, f.nav.Snapshot().Transition)
	assert.Equal(t, Jump, f.nav.Snapshot().Direction)
	f.arrive(t)

	require.True(t, f.nav.JumpTo("about"))
	assert.Equal(t, BwdStart, f.nav.Snapshot().Transition)
	f.arrive(t)
	assert.Equal(t, []string{"index", "notes", "about"}, f.nav.Snapshot().History)
}

func TestJumpToPosition(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.nav.JumpToPosition(200))
	assert.Equal(t, "notes", f.nav.Snapshot().TargetPageID)
	f.arrive(t)

	assert.False(t, f.nav.JumpToPosition(-5))
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindLookupFailed))
}

func TestNextPrev(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	assert.False(t, f.nav.Prev())
	require.True(t, f.nav.Next())
	assert.Equal(t, "about", f.nav.Snapshot().TargetPageID)
	f.arrive(t)
	require.True(t, f.nav.Prev())
	assert.Equal(t, "index", f.nav.Snapshot().TargetPageID)
	assert.Equal(t, Forward, f.nav.Snapshot().Direction)
	f.arrive(t)
	assert.Equal(t, "index", f.nav.Snapshot().CurrentPageID)
}

func TestInterpolatedPosition(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Zero(t, f.nav.InterpolatedPosition())

	require.True(t, f.nav.NavigateTo("work"))
	f.sched.Advance(750 * time.Millisecond)
	f.nav.Tick(750 * time.Millisecond)

	assert.InDelta(t, 60.0, f.nav.InterpolatedPosition(), 1e-9)
	assert.Zero(t, f.nav.Snapshot().CurrentPosition)
}

func TestWatchdog_CancelsStalledTransition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WatchdogTimeout = 1600 * time.Millisecond
	f := newFixture(t, cfg)
	require.True(t, f.nav.NavigateTo("work"))
	f.cmd.reset()

	// No sync: the frame source is stalled while the clock runs.
	f.sched.Advance(1600 * time.Millisecond)

	s := f.nav.Snapshot()
	assert.Equal(t, Idle, s.Transition)
	assert.Empty(t, s.TargetPageID)
	assert.Equal(t, "index", s.CurrentPageID)
	assert.Equal(t, []string{"transition false 0.00", "mode Stopped"}, f.cmd.calls)
	require.Len(t, f.rec.OfKind(diagnostics.KindWatchdogCancel), 1)
	assert.Equal(t, "work", f.rec.OfKind(diagnostics.KindWatchdogCancel)[0].Fields["target"])
}

func TestWatchdog_DisarmedOnCompletion(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))
	f.arrive(t)

	f.sched.Advance(10 * time.Second)
	assert.Zero(t, f.rec.Count(diagnostics.KindWatchdogCancel))
	assert.Zero(t, f.sched.Pending())
}

func TestWatchdog_StopsRealTransport(t *testing.T) {
	sched := schedule.NewScheduler()
	rec := diagnostics.NewRecorder()
	ctl := transport.NewController(transport.NewState(), sched, rec, transport.DefaultConfig())
	t.Cleanup(ctl.Close)
	require.True(t, ctl.LoadTape())
	sched.Advance(transport.DefaultConfig().LoadLatency)
	require.True(t, ctl.SetMode(transport.Playing))

	cfg := DefaultConfig()
	cfg.WatchdogTimeout = 1600 * time.Millisecond
	nav := New(NewState("index", 0), pages.DefaultCatalog(), ctl, sched, rec, cfg)
	t.Cleanup(nav.Close)

	require.True(t, nav.NavigateTo("work"))
	assert.True(t, ctl.Snapshot().IsTransitioning)
	sched.Advance(1600 * time.Millisecond)

	assert.Equal(t, transport.Stopped, ctl.Mode())
	assert.False(t, ctl.Snapshot().IsTransitioning)
	assert.True(t, nav.Idle())
	assert.Empty(t, nav.Snapshot().TargetPageID)
}

func TestSnapshotCopiesHistory(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	s := f.nav.Snapshot()
	s.History[0] = "mutated"
	assert.Equal(t, "index", f.nav.Snapshot().History[0])
}

func TestSetLoading(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.nav.SetLoading(true)
	assert.True(t, f.nav.Snapshot().IsLoading)
	f.nav.SetLoading(false)
	assert.False(t, f.nav.Snapshot().IsLoading)
}

func TestCloseReleasesWatchdog(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.nav.NavigateTo("work"))

	f.nav.Close()
	assert.Zero(t, f.sched.Pending())
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindTaskCancelled))
	f.sched.Advance(10 * time.Second)
	assert.Zero(t, f.rec.Count(diagnostics.KindWatchdogCancel))
}

func TestTransitionStateFamilies(t *testing.T) {
	assert.Equal(t, FwdSeek, stateFor(false, PhaseSeek))
	assert.Equal(t, BwdArrive, stateFor(true, PhaseArrive))
	assert.Equal(t, Idle, stateFor(true, PhaseNone))
	assert.True(t, BwdSeek.Backward())
	assert.False(t, FwdArrive.Backward())
	assert.Equal(t, PhaseNone, Idle.Phase())
}
