package detection

import (
	"gocv.io/x/gocv"
)

// Config tunes a single detector invocation.
type Config struct {
	ImageSize           int     // Square inference input size in pixels
	ConfidenceThreshold float64 // Detections below this are discarded
}

// DefaultConfig matches the tuned defaults the pipeline runs with.
func DefaultConfig() Config {
	return Config{ImageSize: 512, ConfidenceThreshold: 0.35}
}

// Provider is the interface the pipeline consumes for object detection.
type Provider interface {
	// Detect runs inference on one frame and returns the detections.
	Detect(frame gocv.Mat, cfg Config) ([]Detection, error)
	// Close releases any resources held by the provider.
	Close() error
}

// TrackingProvider extends Provider with persistent track identities across
// consecutive frames of the same source.
type TrackingProvider interface {
	Provider
	// Track runs inference and assigns track IDs. With persist set, IDs are
	// carried over from previous calls on the same provider instance.
	Track(frame gocv.Mat, cfg Config, persist bool) ([]Detection, error)
}
