package pipeline

import (
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"roadcam/challan"
	"roadcam/detection"
	"roadcam/media"
	"roadcam/overlay"
	"roadcam/plateocr"
	"roadcam/storage"
	"roadcam/violations"
)

// evidenceMargin pads violation crops taken from still frames, in pixels.
const evidenceMargin = 20

// PhotoJob processes single still frames: uploaded photos and transient
// frames extracted from videos. Stills carry no track identity, so dedup is
// per detected instance within the frame rather than per track.
type PhotoJob struct {
	DB        *storage.DB
	Media     *media.Store
	Detector  detection.Provider
	OCR       *plateocr.Pipeline
	Challans  *challan.Engine
	DetectCfg detection.Config
	Workers   int
	Log       zerolog.Logger
}

// Run processes one uploaded photo record: detection, classification,
// violation persistence, citation dispatch, and an annotated output image.
func (j *PhotoJob) Run(photoID string) error {
	log := j.Log.With().Str("photo", photoID).Logger()

	photo, err := j.DB.GetPhoto(photoID)
	if err != nil {
		return err
	}
	if err := j.DB.SetPhotoStatus(photoID, storage.StatusProcessing); err != nil {
		return err
	}

	frame := gocv.IMRead(photo.OriginalPath, gocv.IMReadColor)
	if frame.Empty() {
		j.failPhoto(photoID, log)
		return fmt.Errorf("failed to read photo %s", photo.OriginalPath)
	}
	defer frame.Close()

	subject := storage.Violation{UserID: photo.UserID, PhotoID: photoID}
	count, err := j.processFrame(frame, violations.ModePhoto, subject, log)
	if err != nil {
		j.failPhoto(photoID, log)
		return err
	}

	outKey := fmt.Sprintf("processed/%s_processed.jpg", photoID)
	outPath, err := j.Media.SaveImage(outKey, media.NewRawFrame(frame))
	if err != nil {
		j.failPhoto(photoID, log)
		return err
	}
	if err := j.DB.FinishPhoto(photoID, outPath); err != nil {
		return err
	}
	log.Info().Int("violations", count).Str("output", outPath).Msg("photo processing complete")
	return nil
}

// ProcessTransientFrame classifies one frame extracted from a video at the
// given timestamp. The frame is not persisted as a job of its own; detected
// violations link back to the video.
func (j *PhotoJob) ProcessTransientFrame(frame gocv.Mat, userID, videoID string, timestamp float64) (int, error) {
	if frame.Empty() {
		return 0, fmt.Errorf("empty transient frame")
	}
	log := j.Log.With().Str("video", videoID).Float64("timestamp", timestamp).Logger()
	subject := storage.Violation{UserID: userID, VideoID: videoID, Timestamp: timestamp}
	return j.processFrame(frame, violations.ModeTransient, subject, log)
}

// processFrame runs detection and classification over one still frame,
// persists violations patterned on the subject template, dispatches citation
// tasks, and annotates the frame in place. Returns the violation count.
func (j *PhotoJob) processFrame(frame gocv.Mat, mode violations.Mode, subject storage.Violation, log zerolog.Logger) (int, error) {
	dets, err := j.Detector.Detect(frame, j.DetectCfg)
	if err != nil {
		return 0, fmt.Errorf("detection failed: %w", err)
	}
	scene := detection.Categorize(dets)
	classifier := violations.Classifier{Mode: mode}
	limits := j.loadLimits(subject.UserID, log)

	pool := NewTaskPool(j.Workers, log)

	// A rider instance may sit within range of more than one vehicle; each
	// no-helmet detection counts once per frame regardless.
	seenRiders := make(map[image.Rectangle]struct{})

	count := 0
	for _, vehicle := range scene.Vehicles {
		limit := limits.Effective(vehicle.ClassLabel)
		events := classifier.ForVehicle(vehicle, scene, 0, false, limit)

		var recorded []violations.Event
		for _, ev := range events {
			if ev.Type == violations.NoHelmet {
				if _, dup := seenRiders[ev.Box]; dup {
					continue
				}
				seenRiders[ev.Box] = struct{}{}
			}
			if err := j.recordStillViolation(frame, subject, vehicle, scene, ev, pool, log); err != nil {
				log.Error().Err(err).Str("type", string(ev.Type)).Msg("failed to record violation")
				continue
			}
			recorded = append(recorded, ev)
			count++
		}
		overlay.DrawDetection(&frame, vehicle, 0, false, recorded)
	}

	pool.Close()
	return count, nil
}

// recordStillViolation persists one violation from a still frame and submits
// its citation task with padded evidence crops.
func (j *PhotoJob) recordStillViolation(frame gocv.Mat, subject storage.Violation, vehicle detection.Detection,
	scene detection.Scene, ev violations.Event, pool *TaskPool, log zerolog.Logger) error {

	violationID := uuid.NewString()
	record := &storage.Violation{
		ID:            violationID,
		UserID:        subject.UserID,
		VideoID:       subject.VideoID,
		PhotoID:       subject.PhotoID,
		ViolationType: string(ev.Type),
		Timestamp:     subject.Timestamp,
		Confidence:    ev.Confidence,
		BBox:          boxJSON(ev.Box),
	}
	if err := j.DB.InsertViolation(record); err != nil {
		return err
	}

	task := &CitationTask{
		DB:              j.DB,
		Media:           j.Media,
		OCR:             j.OCR,
		Challans:        j.Challans,
		Log:             log,
		ViolationID:     violationID,
		UserID:          subject.UserID,
		Type:            ev.Type,
		SavePhotoRecord: true,
	}
	if plate, ok := violations.NearestPlate(vehicle, scene.Plates); ok {
		task.PlateDetected = true
		if crop, ok := media.SnapshotRegion(frame, plate.Box); ok {
			task.PlateCrop = crop
		}
	}
	evidenceBox := ev.Box.Inset(-evidenceMargin)
	if crop, ok := media.SnapshotRegion(frame, evidenceBox); ok {
		task.EvidenceCrop = crop
	}
	pool.Submit(task)

	log.Info().Str("type", string(ev.Type)).Msg("violation detected")
	return nil
}

func (j *PhotoJob) failPhoto(photoID string, log zerolog.Logger) {
	if err := j.DB.SetPhotoStatus(photoID, storage.StatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to mark photo failed")
	}
}

// loadLimits resolves speed limit settings for still classification. Stills
// never estimate speed, but the limits flow through for rule parity.
func (j *PhotoJob) loadLimits(userID string, log zerolog.Logger) violations.Limits {
	var limits violations.Limits
	settings, err := j.DB.GetUserSettings(userID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load user settings, using defaults")
		return limits
	}
	limits.Global = settings.SpeedLimit
	limits.Bike = settings.BikeSpeedLimit
	limits.Car = settings.CarSpeedLimit
	return limits
}
