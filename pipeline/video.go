package pipeline

import (
	"encoding/json"
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
	"roadcam/tracking"
	"roadcam/violations"
)

// DefaultFrameSkip samples every third frame for detection. Skipped frames
// are still written to the output so playback duration is preserved.
const DefaultFrameSkip = 3

const fallbackFPS = 25.0

// VideoJob processes one uploaded video end to end: sequential detection and
// tracking over sampled frames, synchronous violation persistence, deferred
// citation work on a bounded pool, and an annotated output video.
type VideoJob struct {
	DB        *storage.DB
	Media     *media.Store
	Detector  detection.TrackingProvider
	OCR       *plateocr.Pipeline
	Challans  *challan.Engine
	DetectCfg detection.Config
	FrameSkip int
	Workers   int
	Log       zerolog.Logger
}

// Run executes the job for one video record. Frame-level failures are logged
// and skipped; only job-level failures (missing record, unreadable video,
// unwritable output) fail the job and mark the record failed.
func (j *VideoJob) Run(videoID string) error {
	skip := j.FrameSkip
	if skip <= 0 {
		skip = DefaultFrameSkip
	}
	log := j.Log.With().Str("video", videoID).Logger()

	video, err := j.DB.GetVideo(videoID)
	if err != nil {
		return err
	}
	if err := j.DB.SetVideoStatus(videoID, storage.StatusProcessing); err != nil {
		return err
	}

	capture, err := gocv.VideoCaptureFile(video.OriginalPath)
	if err != nil {
		j.fail(videoID, log)
		return fmt.Errorf("failed to open video %s: %w", video.OriginalPath, err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}
	width := int(capture.Get(gocv.VideoCaptureFrameWidth))
	height := int(capture.Get(gocv.VideoCaptureFrameHeight))

	outKey := fmt.Sprintf("processed/%s_processed.mp4", videoID)
	outPath := j.Media.Path(outKey)
	writer, err := gocv.VideoWriterFile(outPath, "mp4v", fps, width, height, true)
	if err != nil {
		j.fail(videoID, log)
		return fmt.Errorf("failed to open output video %s: %w", outPath, err)
	}
	defer writer.Close()

	calib, limits := j.loadUserContext(video.UserID, log)
	ppm := tracking.DefaultPixelsPerMeter
	if calib != nil {
		ppm = calib.PixelsPerMeter(log)
	}

	tracks := tracking.NewStore()
	classifier := violations.Classifier{Mode: violations.ModeVideo}
	pool := NewTaskPool(j.Workers, log)

	log.Info().Float64("fps", fps).Int("width", width).Int("height", height).
		Float64("pixels_per_meter", ppm).Msg("processing video")

	frame := gocv.NewMat()
	defer frame.Close()

	// Skipped frames are buffered unmodified and flushed before the next
	// annotated frame so output order matches input order.
	var pending []gocv.Mat
	flush := func() {
		for _, p := range pending {
			writer.Write(p)
			p.Close()
		}
		pending = pending[:0]
	}

	frameIdx := 0
	totalViolations := 0
	for {
		if ok := capture.Read(&frame); !ok {
			break
		}
		if frame.Empty() {
			continue
		}

		if frameIdx%skip != 0 {
			pending = append(pending, frame.Clone())
			frameIdx++
			continue
		}

		dets, err := j.Detector.Track(frame, j.DetectCfg, true)
		if err != nil {
			log.Error().Err(err).Int("frame", frameIdx).Msg("detection failed")
			flush()
			writer.Write(frame)
			frameIdx++
			continue
		}

		scene := detection.Categorize(dets)
		timestamp := float64(frameIdx) / fps

		for _, vehicle := range scene.Vehicles {
			if vehicle.TrackID <= 0 {
				continue
			}
			tracks.Update(vehicle.TrackID, vehicle.ClassLabel, tracking.Position{
				X:          float64(vehicle.Center.X),
				Y:          float64(vehicle.Center.Y),
				FrameIndex: frameIdx,
			})

			speed, hasSpeed := tracking.EstimateSpeedKPH(tracks.Window(vehicle.TrackID), fps, ppm)
			limit := limits.Effective(tracks.ClassLabel(vehicle.TrackID))

			events := classifier.ForVehicle(vehicle, scene, speed, hasSpeed, limit)
			var recorded []violations.Event
			for _, ev := range events {
				if tracks.HasRecorded(vehicle.TrackID, string(ev.Type)) {
					continue
				}
				tracks.MarkRecorded(vehicle.TrackID, string(ev.Type))
				if err := j.recordViolation(frame, video, vehicle, scene, ev, timestamp, pool, log); err != nil {
					log.Error().Err(err).Str("type", string(ev.Type)).
						Int("track", vehicle.TrackID).Msg("failed to record violation")
					continue
				}
				recorded = append(recorded, ev)
				totalViolations++
			}

			overlay.DrawDetection(&frame, vehicle, speed, hasSpeed, recorded)
		}

		flush()
		writer.Write(frame)
		frameIdx++
	}
	flush()

	// All citation tasks reference violations persisted above; wait for them
	// before declaring the job done.
	pool.Close()

	if err := j.DB.FinishVideo(videoID, outPath, totalViolations, fps); err != nil {
		return err
	}
	log.Info().Int("frames", frameIdx).Int("tracks", tracks.Len()).
		Int("violations", totalViolations).Str("output", outPath).
		Msg("video processing complete")
	return nil
}

// recordViolation persists one violation synchronously, then submits the
// deferred citation work with cloned crops of the plate and subject regions.
func (j *VideoJob) recordViolation(frame gocv.Mat, video *storage.Video, vehicle detection.Detection,
	scene detection.Scene, ev violations.Event, timestamp float64, pool *TaskPool, log zerolog.Logger) error {

	violationID := uuid.NewString()
	record := &storage.Violation{
		ID:            violationID,
		UserID:        video.UserID,
		VideoID:       video.ID,
		ViolationType: string(ev.Type),
		Timestamp:     timestamp,
		TrackID:       vehicle.TrackID,
		Confidence:    ev.Confidence,
		BBox:          boxJSON(ev.Box),
	}
	if ev.HasSpeed {
		speed := ev.Speed
		record.Speed = &speed
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
		UserID:          video.UserID,
		Type:            ev.Type,
		SavePhotoRecord: true,
	}
	if plate, ok := violations.NearestPlate(vehicle, scene.Plates); ok {
		task.PlateDetected = true
		if crop, ok := media.SnapshotRegion(frame, plate.Box); ok {
			task.PlateCrop = crop
		}
	}
	if crop, ok := media.SnapshotRegion(frame, vehicle.Box); ok {
		task.EvidenceCrop = crop
	}
	pool.Submit(task)

	log.Info().Str("type", string(ev.Type)).Int("track", vehicle.TrackID).
		Float64("timestamp", timestamp).Msg("violation detected")
	return nil
}

func (j *VideoJob) fail(videoID string, log zerolog.Logger) {
	if err := j.DB.SetVideoStatus(videoID, storage.StatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to mark video failed")
	}
}

// loadUserContext resolves the user's calibration and speed limit settings.
// Missing context never fails a job; defaults apply instead.
func (j *VideoJob) loadUserContext(userID string, log zerolog.Logger) (*tracking.Calibration, violations.Limits) {
	calib, err := j.DB.LatestCalibration(userID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load calibration, using defaults")
		calib = nil
	}

	var limits violations.Limits
	if calib != nil {
		limits.Calibration = calib.SpeedLimitKPH
	}
	settings, err := j.DB.GetUserSettings(userID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load user settings, using defaults")
	} else {
		limits.Global = settings.SpeedLimit
		limits.Bike = settings.BikeSpeedLimit
		limits.Car = settings.CarSpeedLimit
	}
	return calib, limits
}

func boxJSON(box image.Rectangle) string {
	b, _ := json.Marshal([4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y})
	return string(b)
}
