package violations

import (
	"roadcam/detection"
)

// Mode selects per-mode matching thresholds. Photo and transient frames lack
// the temporal smoothing continuous tracking provides, so their distance
// gates differ.
type Mode int

const (
	ModeVideo Mode = iota
	ModePhoto
	ModeTransient
)

// no-helmet center-distance gates per mode, in pixels.
func (m Mode) noHelmetDistance() float64 {
	switch m {
	case ModePhoto:
		return 250
	case ModeTransient:
		return 150
	default:
		return 200
	}
}

const (
	noHelmetIoU    = 0.01
	tripleDistance = 300
	phoneDistance  = 150
)

// Classifier maps one frame's categorized detections to violation events
// using geometric rules. Rules are independent: a single vehicle may emit
// several violation types in the same frame.
type Classifier struct {
	Mode Mode
}

// ForVehicle evaluates all rules for one vehicle detection against the
// frame's scene. speed/hasSpeed is the current track estimate (video mode
// only) and limit the effective speed limit resolved for this vehicle.
//
// A helmet detection being absent never implies a violation; only explicit
// no-helmet detections fire the no-helmet rule. One event is emitted per
// matched no-helmet detection so multiple riders on one vehicle each count.
func (c *Classifier) ForVehicle(vehicle detection.Detection, scene detection.Scene, speed float64, hasSpeed bool, limit float64) []Event {
	var events []Event

	if detection.IsBikeLike(vehicle.ClassLabel) {
		maxDist := c.Mode.noHelmetDistance()
		for _, nh := range scene.NoHelmets {
			if detection.BoxIoU(vehicle.Box, nh.Box) > noHelmetIoU || detection.CenterDistance(vehicle, nh) < maxDist {
				events = append(events, Event{
					Type:       NoHelmet,
					Confidence: nh.Confidence,
					Box:        nh.Box,
					Speed:      speed,
					HasSpeed:   hasSpeed,
				})
			}
		}

		// Triple riding needs an explicit triple-occupancy detection near the
		// vehicle; it is never inferred by counting riders.
		for _, tr := range scene.Triples {
			if detection.CenterDistance(vehicle, tr) < tripleDistance {
				events = append(events, Event{
					Type:       TripleRiding,
					Confidence: tr.Confidence,
					Box:        vehicle.Box,
					Speed:      speed,
					HasSpeed:   hasSpeed,
				})
				break
			}
		}
	}

	if hasSpeed && speed > limit {
		events = append(events, Event{
			Type:       Overspeeding,
			Confidence: vehicle.Confidence,
			Box:        vehicle.Box,
			Speed:      speed,
			HasSpeed:   true,
		})
	}

	if c.Mode == ModePhoto || c.Mode == ModeTransient {
		for _, ph := range scene.Phones {
			if detection.CenterDistance(vehicle, ph) < phoneDistance {
				events = append(events, Event{
					Type:       CellPhone,
					Confidence: ph.Confidence,
					Box:        vehicle.Box,
					Speed:      speed,
					HasSpeed:   hasSpeed,
				})
				break
			}
		}
	}

	return events
}

// NearestPlate returns the plate-like detection closest to the subject, and
// whether one was found within the association gate.
func NearestPlate(subject detection.Detection, plates []detection.Detection) (detection.Detection, bool) {
	best := -1
	bestDist := float64(tripleDistance)
	for i, p := range plates {
		if d := detection.CenterDistance(subject, p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return detection.Detection{}, false
	}
	return plates[best], true
}
