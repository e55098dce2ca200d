package tracking

import "math"

// minSpeedWindow is the minimum number of sampled positions before a speed
// estimate is considered stable enough to act on.
const minSpeedWindow = 5

// EstimateSpeedKPH estimates a track's speed in km/h from its position
// window. The estimate spans the oldest and newest sampled positions:
// pixel displacement is converted to meters through pixelsPerMeter and
// divided by the elapsed time implied by the frame index delta.
//
// The second return is false when the window is too short or the elapsed
// time is not positive; no violation can be derived in that case.
func EstimateSpeedKPH(window []Position, fps, pixelsPerMeter float64) (float64, bool) {
	if len(window) < minSpeedWindow || fps <= 0 || pixelsPerMeter <= 0 {
		return 0, false
	}
	first := window[0]
	last := window[len(window)-1]

	elapsed := float64(last.FrameIndex-first.FrameIndex) / fps
	if elapsed <= 0 {
		return 0, false
	}

	pixels := math.Hypot(last.X-first.X, last.Y-first.Y)
	meters := pixels / pixelsPerMeter
	return meters / elapsed * 3.6, true
}
