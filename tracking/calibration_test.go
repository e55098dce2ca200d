package tracking

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPixelsPerMeter(t *testing.T) {
	log := zerolog.Nop()

	t.Run("derives scale from reference points", func(t *testing.T) {
		c := &Calibration{
			PixelPoints:       [2]Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
			ReferenceDistance: 2,
		}
		assert.InDelta(t, 50.0, c.PixelsPerMeter(log), 1e-9)
	})

	t.Run("diagonal points", func(t *testing.T) {
		c := &Calibration{
			PixelPoints:       [2]Point{{X: 0, Y: 0}, {X: 30, Y: 40}},
			ReferenceDistance: 5,
		}
		assert.InDelta(t, 10.0, c.PixelsPerMeter(log), 1e-9)
	})

	t.Run("nil calibration falls back to default", func(t *testing.T) {
		var c *Calibration
		assert.Equal(t, DefaultPixelsPerMeter, c.PixelsPerMeter(log))
	})

	t.Run("non-positive reference distance falls back", func(t *testing.T) {
		c := &Calibration{
			PixelPoints:       [2]Point{{X: 0, Y: 0}, {X: 100, Y: 0}},
			ReferenceDistance: 0,
		}
		assert.Equal(t, DefaultPixelsPerMeter, c.PixelsPerMeter(log))

		c.ReferenceDistance = -3
		assert.Equal(t, DefaultPixelsPerMeter, c.PixelsPerMeter(log))
	})

	t.Run("coincident points fall back", func(t *testing.T) {
		c := &Calibration{
			PixelPoints:       [2]Point{{X: 50, Y: 50}, {X: 50, Y: 50}},
			ReferenceDistance: 10,
		}
		assert.Equal(t, DefaultPixelsPerMeter, c.PixelsPerMeter(log))
	})
}
