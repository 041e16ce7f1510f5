package transport

import (
	"fmt"
	"math"
)

// Placeholder readouts for modes without a meaningful position.
const (
	DisplayEjected = "--:--:--:--"
	DisplayLoading = "LOADING"
)

// DisplayText returns the deck readout: HH:MM:SS:FF while a tape is loaded
// and settled, a placeholder otherwise.
func (c *Controller) DisplayText() string {
	return FormatDisplay(*c.state, c.config.FrameRate)
}

// Label returns the short status label of the current mode.
func (c *Controller) Label() string { return c.state.Mode.Label() }

// FormatDisplay renders the readout for s.
func FormatDisplay(s State, frameRate int) string {
	switch {
	case s.Mode == Ejected:
		return DisplayEjected
	case s.Mode == Loading:
		return DisplayLoading
	case !s.TapeLoaded:
		return DisplayEjected
	}
	return FormatTimecode(s.Position, frameRate)
}

// FormatTimecode renders seconds as HH:MM:SS:FF with
// FF = floor(frac(seconds) * frameRate).
func FormatTimecode(seconds float64, frameRate int) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	whole := math.Floor(seconds)
	frames := int(math.Floor((seconds - whole) * float64(frameRate)))
	if frames >= frameRate {
		frames = frameRate - 1
	}
	total := int64(whole)
	return fmt.Sprintf("%02d:%02d:%02d:%02d", total/3600, (total/60)%60, total%60, frames)
}
