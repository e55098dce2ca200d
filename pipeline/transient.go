package pipeline

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ScanVideoFrames samples one frame per interval from a video file and runs
// transient classification on each. It is the lightweight alternative to a
// full tracked VideoJob run: no output video, no speed estimation, stricter
// matching gates.
func (j *PhotoJob) ScanVideoFrames(videoPath, userID, videoID string, intervalSeconds float64) (int, error) {
	capture, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open video %s: %w", videoPath, err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 1
	}
	step := int(fps * intervalSeconds)
	if step < 1 {
		step = 1
	}

	frame := gocv.NewMat()
	defer frame.Close()

	total := 0
	frameIdx := 0
	for {
		if ok := capture.Read(&frame); !ok {
			break
		}
		if frame.Empty() || frameIdx%step != 0 {
			frameIdx++
			continue
		}
		timestamp := float64(frameIdx) / fps
		n, err := j.ProcessTransientFrame(frame, userID, videoID, timestamp)
		if err != nil {
			j.Log.Error().Err(err).Float64("timestamp", timestamp).Msg("transient frame failed")
		}
		total += n
		frameIdx++
	}
	return total, nil
}
