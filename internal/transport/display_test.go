package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		seconds float64
		rate    int
		want    string
	}{
		{0, 30, "00:00:00:00"},
		{1.5, 30, "00:00:01:15"},
		{59.999, 30, "00:00:59:29"},
		{3723.25, 30, "01:02:03:07"},
		{10.5, 25, "00:00:10:12"},
		{-4, 30, "00:00:00:00"},
		{2.5, 0, "00:00:02:15"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimecode(tt.seconds, tt.rate), "seconds=%v rate=%d", tt.seconds, tt.rate)
	}
}

func TestFormatDisplayPlaceholders(t *testing.T) {
	assert.Equal(t, DisplayEjected, FormatDisplay(State{Mode: Ejected, Position: 3}, 30))
	assert.Equal(t, DisplayLoading, FormatDisplay(State{Mode: Loading, TapeLoaded: true}, 30))
	assert.Equal(t, "00:00:03:00", FormatDisplay(State{Mode: Paused, TapeLoaded: true, Position: 3}, 30))
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	got, ok := ParseMode(" FF ")
	assert.True(t, ok)
	assert.Equal(t, FastForward, got)

	_, ok = ParseMode("warp")
	assert.False(t, ok)
}

func TestModeLabelsAndSpeeds(t *testing.T) {
	assert.Equal(t, "⏵ PLAY", Playing.Label())
	assert.Equal(t, "! ERROR", Mode(99).Label())
	assert.Equal(t, "Unknown", Mode(99).String())
	assert.Equal(t, 4.0, FastForward.Speed())
	assert.Equal(t, -4.0, Rewind.Speed())
	assert.Equal(t, 0.0, Loading.Speed())
	assert.False(t, Loading.RequiresTape())
	assert.True(t, Paused.RequiresTape())
}
