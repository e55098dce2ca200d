package tracking

import (
	"math"

	"github.com/rs/zerolog"
)

// DefaultPixelsPerMeter is used when no calibration exists or the stored one
// is unusable. The value matches an uncalibrated roadside camera at typical
// mounting height.
const DefaultPixelsPerMeter = 50.0

// Point is a 2D pixel coordinate picked during calibration.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Calibration maps pixel distance to real-world distance for one camera
// placement. Immutable per run; supplied externally. SpeedLimitKPH is zero
// when the calibrating user did not set one.
type Calibration struct {
	PixelPoints       [2]Point
	ReferenceDistance float64 // meters between the two pixel points
	SpeedLimitKPH     float64
}

// PixelsPerMeter derives the pixel-to-meter scale from the calibration.
// A non-positive reference distance would divide by zero or flip signs, so
// it falls back to DefaultPixelsPerMeter and logs the anomaly instead.
func (c *Calibration) PixelsPerMeter(log zerolog.Logger) float64 {
	if c == nil {
		return DefaultPixelsPerMeter
	}
	if c.ReferenceDistance <= 0 {
		log.Warn().
			Float64("reference_distance", c.ReferenceDistance).
			Msg("calibration reference distance not positive, using default scale")
		return DefaultPixelsPerMeter
	}
	dx := c.PixelPoints[1].X - c.PixelPoints[0].X
	dy := c.PixelPoints[1].Y - c.PixelPoints[0].Y
	pixelDist := math.Hypot(dx, dy)
	if pixelDist <= 0 {
		log.Warn().Msg("calibration pixel points coincide, using default scale")
		return DefaultPixelsPerMeter
	}
	return pixelDist / c.ReferenceDistance
}
