package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"roadcam/detection"
	"roadcam/violations"
)

var (
	colorOK        = color.RGBA{G: 255, A: 255}
	colorViolation = color.RGBA{R: 255, A: 255}
)

// DrawDetection draws one tracked detection onto the frame: green box for a
// clean pass, red with the violation labels when any rule fired.
func DrawDetection(frame *gocv.Mat, d detection.Detection, speed float64, hasSpeed bool, events []violations.Event) {
	boxColor := colorOK
	if len(events) > 0 {
		boxColor = colorViolation
	}
	gocv.Rectangle(frame, d.Box, boxColor, 2)

	label := d.ClassLabel
	if d.TrackID > 0 {
		label += fmt.Sprintf(" #%d", d.TrackID)
	}
	if hasSpeed {
		label += fmt.Sprintf(" %.1fkm/h", speed)
	}
	if len(events) > 0 {
		names := make([]string, len(events))
		for i, ev := range events {
			names[i] = strings.ToUpper(string(ev.Type))
		}
		label += " [" + strings.Join(names, ", ") + "]"
	}

	origin := image.Pt(d.Box.Min.X, d.Box.Min.Y-10)
	gocv.PutText(frame, label, origin, gocv.FontHersheySimplex, 0.5, boxColor, 2)
}
