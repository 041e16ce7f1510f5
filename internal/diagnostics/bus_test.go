package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversWithSequence(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ch := bus.Subscribe(4)

	bus.Emit(New(KindModeChange, "transport", "first", nil))
	bus.Emit(New(KindModeChange, "transport", "second", nil))

	first := <-ch
	second := <-ch
	assert.Equal(t, "first", first.Message)
	assert.Less(t, first.ID, second.ID)
}

func TestBusKindFilter(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	bus.SetKinds(KindWatchdogCancel)
	ch := bus.Subscribe(4)

	bus.Emit(New(KindModeChange, "transport", "filtered", nil))
	bus.Emit(New(KindWatchdogCancel, "navigation", "kept", nil))

	got := <-ch
	assert.Equal(t, "kept", got.Message)
	assert.Len(t, ch, 0)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	bus.Subscribe(1)

	bus.Emit(New(KindModeChange, "t", "a", nil))
	bus.Emit(New(KindModeChange, "t", "b", nil))

	stats := bus.Stats()
	assert.Equal(t, 1, stats.Subscribers)
	assert.Equal(t, uint64(2), stats.TotalEmitted)
	assert.Equal(t, uint64(1), stats.Dropped)
}

func TestBusUnsubscribeAndClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(1)
	bus.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel is closed")
	assert.Equal(t, 0, bus.Stats().Subscribers)

	other := bus.Subscribe(1)
	bus.Close()
	bus.Close()
	_, ok = <-other
	assert.False(t, ok)

	late := bus.Subscribe(1)
	_, ok = <-late
	require.False(t, ok, "subscribing to a closed bus yields a closed channel")
	assert.NotPanics(t, func() { bus.Emit(New(KindModeChange, "t", "late", nil)) })
}
