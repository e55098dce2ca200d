package detection

import (
	"fmt"
	"image"
	"strings"
)

// Detection is a single object reported by the detector for one frame.
// Instances are ephemeral: they exist only while that frame is processed.
type Detection struct {
	ClassLabel string
	Box        image.Rectangle
	Confidence float64
	Center     image.Point

	// TrackID is the detector-assigned persistent identity, or 0 when the
	// detector ran without tracking (single photos, transient frames).
	TrackID int
}

// NewDetection validates and builds a Detection from raw detector output.
func NewDetection(classLabel string, box image.Rectangle, confidence float64) (Detection, error) {
	if classLabel == "" {
		return Detection{}, fmt.Errorf("detection has empty class label")
	}
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return Detection{}, fmt.Errorf("detection %q has degenerate box %v", classLabel, box)
	}
	if confidence < 0 || confidence > 1 {
		return Detection{}, fmt.Errorf("detection %q has confidence %f outside [0,1]", classLabel, confidence)
	}
	return Detection{
		ClassLabel: classLabel,
		Box:        box,
		Confidence: confidence,
		Center:     image.Pt((box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2),
	}, nil
}

// Scene groups one frame's detections by the categories the violation rules
// consume. Explicit helmet detections are kept but never drive a violation;
// only explicit no-helmet detections may.
type Scene struct {
	Vehicles  []Detection
	Helmets   []Detection
	NoHelmets []Detection
	Phones    []Detection
	Plates    []Detection
	Triples   []Detection
}

// IsVehicle reports whether a class label names a rider vehicle.
func IsVehicle(classLabel string) bool {
	return containsAny(strings.ToLower(classLabel), "bike", "motor", "scooter", "car", "auto", "vehicle")
}

// IsBikeLike reports whether a class label names a two-wheeler.
func IsBikeLike(classLabel string) bool {
	return containsAny(strings.ToLower(classLabel), "bike", "motor", "scooter")
}

// IsCarLike reports whether a class label names a four-wheeler.
func IsCarLike(classLabel string) bool {
	return containsAny(strings.ToLower(classLabel), "car", "auto", "vehicle")
}

// Categorize sorts detections into the buckets the classifier operates on.
// Category membership is keyword-based so the same code works across model
// variants that prefix or suffix their class names.
func Categorize(dets []Detection) Scene {
	var s Scene
	for _, d := range dets {
		name := strings.ToLower(d.ClassLabel)
		switch {
		case containsAny(name, "no_helmet", "nohelmet") || name == "no helmet":
			s.NoHelmets = append(s.NoHelmets, d)
		case strings.Contains(name, "helmet"):
			s.Helmets = append(s.Helmets, d)
		case containsAny(name, "triple"):
			s.Triples = append(s.Triples, d)
		case containsAny(name, "plate", "number", "license"):
			s.Plates = append(s.Plates, d)
		case containsAny(name, "phone", "cell", "mobile"):
			s.Phones = append(s.Phones, d)
		case IsVehicle(name):
			s.Vehicles = append(s.Vehicles, d)
		}
	}
	return s
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
