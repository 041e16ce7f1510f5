package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapedeck/internal/diagnostics"
	"tapedeck/internal/schedule"
)

type fixture struct {
	state *State
	sched *schedule.Scheduler
	rec   *diagnostics.Recorder
	ctl   *Controller
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		state: NewState(),
		sched: schedule.NewScheduler(),
		rec:   diagnostics.NewRecorder(),
	}
	f.ctl = NewController(f.state, f.sched, f.rec, cfg)
	t.Cleanup(f.ctl.Close)
	return f
}

// force puts the controller in mode without going through the table.
func (f *fixture) force(mode Mode, position float64) {
	f.state.Mode = mode
	f.state.TapeLoaded = mode.RequiresTape() || mode == Loading
	f.state.Position = position
}

func (f *fixture) loaded(t *testing.T) {
	t.Helper()
	require.True(t, f.ctl.LoadTape())
	f.sched.Advance(DefaultConfig().LoadLatency)
	require.Equal(t, Stopped, f.ctl.Mode())
}

func TestInitialState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Equal(t, State{Mode: Ejected}, f.ctl.Snapshot())
	assert.Equal(t, DisplayEjected, f.ctl.DisplayText())
	assert.Equal(t, "█ NO TAPE", f.ctl.Label())
}

func TestSetMode_UnlistedPairsAreNoOps(t *testing.T) {
	for _, from := range Modes {
		for _, to := range Modes {
			if CanTransition(from, to) {
				continue
			}
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				f := newFixture(t, DefaultConfig())
				f.force(from, 5)
				before := f.ctl.Snapshot()

				ok := f.ctl.SetMode(to)

				assert.False(t, ok)
				assert.Equal(t, before, f.ctl.Snapshot())
				assert.Equal(t, 1, f.rec.Count(diagnostics.KindTransitionRejected))
				assert.Equal(t, 0, f.rec.Count(diagnostics.KindModeChange))
			})
		}
	}
}

func TestSetMode_ListedPairsApply(t *testing.T) {
	for _, from := range Modes {
		for _, to := range Targets(from) {
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				f := newFixture(t, DefaultConfig())
				f.force(from, 5)

				require.True(t, f.ctl.SetMode(to))

				assert.Equal(t, to, f.ctl.Mode())
				assert.Equal(t, 1, f.rec.Count(diagnostics.KindModeChange))
				if to.RequiresTape() {
					assert.True(t, f.state.TapeLoaded)
				}
			})
		}
	}
}

func TestScenario_PlayThenLoadRejected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.force(Stopped, 0)

	require.True(t, f.ctl.SetMode(Playing))
	assert.Equal(t, Playing, f.ctl.Mode())

	assert.False(t, f.ctl.SetMode(Loading))
	assert.Equal(t, Playing, f.ctl.Mode())

	rejected := f.rec.OfKind(diagnostics.KindTransitionRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, diagnostics.SeverityWarn, rejected[0].Severity)
	assert.Equal(t, "Playing", rejected[0].Fields["from"])
	assert.Equal(t, "Loading", rejected[0].Fields["to"])
}

func TestTick_Speeds(t *testing.T) {
	tests := []struct {
		mode  Mode
		start float64
		want  float64
	}{
		{Playing, 10, 11},
		{FastForward, 10, 14},
		{Rewind, 2, 0},
		{Rewind, 10, 6},
		{Paused, 10, 10},
		{Stopped, 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			f.force(tt.mode, tt.start)

			f.ctl.Tick(time.Second)

			assert.InDelta(t, tt.want, f.ctl.Position(), 1e-9)
			assert.Equal(t, tt.mode, f.ctl.Mode(), "tick never changes mode")
		})
	}
}

func TestTick_RewindHoldsAtFloor(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.force(Rewind, 1)

	for i := 0; i < 5; i++ {
		f.ctl.Tick(time.Second)
	}

	assert.Equal(t, 0.0, f.ctl.Position())
	assert.Equal(t, Rewind, f.ctl.Mode())
}

func TestTick_ForwardHoldsAtLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Length = 12
	f := newFixture(t, cfg)
	f.force(FastForward, 10)

	f.ctl.Tick(time.Second)

	assert.Equal(t, 12.0, f.ctl.Position())
}

func TestLoadTape_CompletesToStopped(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.True(t, f.ctl.LoadTape())
	assert.Equal(t, Loading, f.ctl.Mode())
	assert.True(t, f.state.TapeLoaded)
	assert.Equal(t, DisplayLoading, f.ctl.DisplayText())
	assert.Equal(t, []string{"load_complete"}, f.ctl.PendingTasks())

	f.sched.Advance(DefaultConfig().LoadLatency - time.Millisecond)
	assert.Equal(t, Loading, f.ctl.Mode())

	f.sched.Advance(time.Millisecond)
	assert.Equal(t, Stopped, f.ctl.Mode())
	assert.Equal(t, 0.0, f.ctl.Position())
	assert.Equal(t, "00:00:00:00", f.ctl.DisplayText())
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindLoadComplete))
}

func TestLoadTape_OnlyFromEjected(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.loaded(t)

	assert.False(t, f.ctl.LoadTape())
	assert.Equal(t, Stopped, f.ctl.Mode())
}

func TestEject_DuringLoadingCancelsCompletion(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.ctl.LoadTape())

	f.ctl.Eject()
	f.sched.Advance(time.Minute)

	assert.Equal(t, State{Mode: Ejected}, f.ctl.Snapshot())
	assert.Empty(t, f.ctl.PendingTasks())
	assert.Equal(t, 0, f.rec.Count(diagnostics.KindLoadComplete))
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindTaskCancelled))
}

func TestLoadCompletion_GuardsAgainstInterveningMode(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.ctl.LoadTape())

	// Leave Loading behind without cancelling the pending completion.
	f.state.Mode = Playing
	f.sched.Advance(time.Minute)

	assert.Equal(t, Playing, f.ctl.Mode())
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindLoadAborted))
}

func TestEject_FromAnyMode(t *testing.T) {
	for _, from := range Modes {
		t.Run(from.String(), func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			f.force(from, 42)
			f.state.IsTransitioning = true
			f.state.TransitionProgress = 0.5

			f.ctl.Eject()

			assert.Equal(t, State{Mode: Ejected}, f.ctl.Snapshot())
		})
	}
}

func TestSetModeEjected_FollowsTable(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.force(Playing, 3)

	assert.False(t, f.ctl.SetMode(Ejected), "Playing -> Ejected is not listed")
	assert.Equal(t, Playing, f.ctl.Mode())

	f.force(Stopped, 3)
	assert.True(t, f.ctl.SetMode(Ejected))
	assert.Equal(t, State{Mode: Ejected}, f.ctl.Snapshot())
}

func TestSetModeAfter_FiresAndIsDroppedByEject(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.force(Playing, 0)

	f.ctl.SetModeAfter(300*time.Millisecond, Paused)
	f.sched.Advance(300 * time.Millisecond)
	assert.Equal(t, Paused, f.ctl.Mode())

	f.force(Playing, 0)
	f.ctl.SetModeAfter(300*time.Millisecond, Paused)
	f.force(Stopped, 0)
	f.ctl.Eject()
	f.sched.Advance(time.Second)
	assert.Equal(t, Ejected, f.ctl.Mode())
	assert.Equal(t, 0, f.rec.Count(diagnostics.KindTransitionRejected))
}

func TestSetPosition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Length = 100
	f := newFixture(t, cfg)

	f.ctl.SetPosition(10)
	assert.Equal(t, 0.0, f.ctl.Position(), "ignored without tape")
	assert.Equal(t, 1, f.rec.Count(diagnostics.KindPositionRejected))

	f.loaded(t)
	f.ctl.SetPosition(-3)
	assert.Equal(t, 0.0, f.ctl.Position())
	f.ctl.SetPosition(250)
	assert.Equal(t, 100.0, f.ctl.Position())
	f.ctl.SetPosition(61.5)
	assert.Equal(t, "00:01:01:15", f.ctl.DisplayText())

	f.ctl.SetLength(50)
	assert.Equal(t, 50.0, f.ctl.Position())
}

func TestSetTransitionClamps(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.ctl.SetTransition(true, 1.7)
	assert.True(t, f.state.IsTransitioning)
	assert.Equal(t, 1.0, f.state.TransitionProgress)

	f.ctl.SetTransition(true, -2)
	assert.Equal(t, 0.0, f.state.TransitionProgress)

	f.ctl.SetTransition(false, 0.4)
	assert.False(t, f.state.IsTransitioning)
	assert.Equal(t, 0.0, f.state.TransitionProgress)
}

func TestHistoryRecordsReasons(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.loaded(t)
	require.True(t, f.ctl.SetMode(Playing))

	h := f.ctl.History()
	require.Len(t, h, 3)
	assert.Equal(t, ModeChange{From: Ejected, To: Loading, Reason: "load_tape", At: 0}, h[0])
	assert.Equal(t, Stopped, h[1].To)
	assert.Equal(t, DefaultConfig().LoadLatency, h[1].At)
	assert.Equal(t, "set_mode", h[2].Reason)
}

func TestCloseReleasesScope(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.True(t, f.ctl.LoadTape())

	f.ctl.Close()
	f.sched.Advance(time.Minute)

	assert.Equal(t, Loading, f.ctl.Mode())
	assert.Empty(t, f.ctl.PendingTasks())
}
