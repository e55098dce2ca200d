package detection

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// trackedBox is the association state for one persistent identity.
type trackedBox struct {
	id         int
	classLabel string
	box        image.Rectangle
	missed     int
}

// maxMissedFrames is how many consecutive detector calls an identity may go
// unmatched before it is dropped.
const maxMissedFrames = 15

// Tracker wraps a Provider and assigns persistent track IDs by greedy
// IoU association between consecutive frames. It satisfies TrackingProvider
// for detectors that only expose single-frame inference.
type Tracker struct {
	Provider

	nextID int
	tracks []*trackedBox
}

// NewTracker creates a tracking wrapper around a detection provider.
func NewTracker(p Provider) *Tracker {
	return &Tracker{Provider: p, nextID: 1}
}

// Track implements TrackingProvider. Without persist, association state is
// reset first so each call behaves like an independent detection.
func (t *Tracker) Track(frame gocv.Mat, cfg Config, persist bool) ([]Detection, error) {
	if !persist {
		t.tracks = nil
	}

	dets, err := t.Provider.Detect(frame, cfg)
	if err != nil {
		return nil, err
	}

	existing := len(t.tracks)
	claimed := make(map[int]bool, len(t.tracks))
	for i := range dets {
		best := -1
		bestScore := 0.0
		for j, tr := range t.tracks {
			if claimed[j] || tr.classLabel != dets[i].ClassLabel {
				continue
			}
			score := BoxIoU(dets[i].Box, tr.box)
			if score > bestScore {
				bestScore = score
				best = j
			}
		}
		if best >= 0 && bestScore > 0.1 {
			claimed[best] = true
			t.tracks[best].box = dets[i].Box
			t.tracks[best].missed = 0
			dets[i].TrackID = t.tracks[best].id
		} else {
			tr := &trackedBox{id: t.nextID, classLabel: dets[i].ClassLabel, box: dets[i].Box}
			t.nextID++
			t.tracks = append(t.tracks, tr)
			dets[i].TrackID = tr.id
		}
	}

	// Age out identities that went unmatched. Tracks created during this
	// call are not aged on their birth frame.
	kept := t.tracks[:0]
	for j, tr := range t.tracks {
		if j >= existing || claimed[j] {
			kept = append(kept, tr)
			continue
		}
		if tr.missed+1 > maxMissedFrames {
			continue
		}
		tr.missed++
		kept = append(kept, tr)
	}
	t.tracks = kept

	return dets, nil
}

// BoxIoU returns the intersection-over-union of two boxes, 0 when disjoint.
func BoxIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	interArea := float64(inter.Dx() * inter.Dy())
	denom := float64(a.Dx()*a.Dy()) + float64(b.Dx()*b.Dy()) - interArea
	if denom <= 0 {
		return 0
	}
	return interArea / denom
}

// CenterDistance returns the Euclidean distance between two detection centers.
func CenterDistance(a, b Detection) float64 {
	dx := float64(a.Center.X - b.Center.X)
	dy := float64(a.Center.Y - b.Center.Y)
	return math.Hypot(dx, dy)
}
