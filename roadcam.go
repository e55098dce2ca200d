package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"roadcam/challan"
	"roadcam/detection"
	"roadcam/document"
	"roadcam/media"
	"roadcam/pipeline"
	"roadcam/plateocr"
	"roadcam/storage"
)

var (
	// Command-line flags
	videoPath = flag.String("video", "", "Process a video file through full tracking, violation detection and citation\n\t\tExample: -video footage/junction_cam3.mp4")
	photoPath = flag.String("photo", "", "Process a single photo through violation detection and citation\n\t\tExample: -photo captures/rider.jpg")
	scanPath  = flag.String("scan", "", "Scan a video by sampling one frame per interval (no tracking, no output video)\n\t\tExample: -scan footage/junction_cam3.mp4 -interval 2")
	interval  = flag.Float64("interval", 1.0, "Sampling interval in seconds for -scan mode")

	userID = flag.String("user", "default", "User whose calibration and speed limit settings apply")

	dbPath   = flag.String("db", "roadcam.db", "SQLite database path (created on first run)")
	mediaDir = flag.String("media-dir", "media", "Root directory for crops, annotated output and challan documents")

	weightsPath = flag.String("weights", "models/traffic.weights", "Detection model weights file")
	configPath  = flag.String("model-config", "models/traffic.cfg", "Detection model network configuration file")
	namesPath   = flag.String("names", "models/traffic.names", "Class names file, one label per line")
	imageSize   = flag.Int("image-size", 512, "Square inference input size in pixels")
	confidence  = flag.Float64("confidence", 0.35, "Minimum detection confidence (0.0-1.0)")

	frameSkip = flag.Int("frame-skip", pipeline.DefaultFrameSkip, "Run detection on every Nth frame; skipped frames pass through to the output")
	workers   = flag.Int("workers", 4, "Concurrent citation workers (OCR, evidence persistence, document generation)")
	ocrLang   = flag.String("ocr-lang", "eng", "Tesseract language for plate OCR")

	calibrate = flag.String("calibrate", "", "Store a calibration as x1,y1,x2,y2 pixel coordinates of two reference points\n\t\tExample: -calibrate 120,400,680,420 -distance 10 -limit 40")
	distance  = flag.Float64("distance", 0, "Real-world distance in meters between the calibration points")
	limit     = flag.Float64("limit", 0, "Speed limit in km/h attached to the calibration")

	setLimits = flag.Bool("set-limits", false, "Store per-user speed limits from -speed-limit/-bike-limit/-car-limit")
	speedLim  = flag.Float64("speed-limit", 0, "Global speed limit in km/h (0 leaves unset)")
	bikeLim   = flag.Float64("bike-limit", 0, "Motorcycle speed limit in km/h (0 leaves unset)")
	carLim    = flag.Float64("car-limit", 0, "Car speed limit in km/h (0 leaves unset)")

	listChallans = flag.Bool("list-challans", false, "Print issued challans and exit")
	challanID    = flag.String("challan", "", "Print the full detail of one challan by id and exit")
	debugMode    = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *debugMode {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	db, err := storage.NewDB(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	switch {
	case *calibrate != "":
		if err := storeCalibration(db, log); err != nil {
			log.Fatal().Err(err).Msg("failed to store calibration")
		}
	case *setLimits:
		if err := db.SetUserSettings(&storage.UserSettings{
			UserID:         *userID,
			SpeedLimit:     *speedLim,
			BikeSpeedLimit: *bikeLim,
			CarSpeedLimit:  *carLim,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to store user settings")
		}
		log.Info().Str("user", *userID).Msg("speed limits stored")
	case *listChallans:
		if err := printChallans(db); err != nil {
			log.Fatal().Err(err).Msg("failed to list challans")
		}
	case *challanID != "":
		if err := printChallanDetail(db, *challanID); err != nil {
			log.Fatal().Err(err).Msg("failed to load challan")
		}
	case *videoPath != "" || *photoPath != "" || *scanPath != "":
		if err := runProcessing(db, log); err != nil {
			log.Fatal().Err(err).Msg("processing failed")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// runProcessing wires the full pipeline stack and dispatches the requested
// job. Detector and OCR engine are shared by whichever mode runs.
func runProcessing(db *storage.DB, log zerolog.Logger) error {
	mediaStore, err := media.NewStore(*mediaDir)
	if err != nil {
		return err
	}

	provider, err := detection.NewDNNProvider(*weightsPath, *configPath, *namesPath, log)
	if err != nil {
		return err
	}
	defer provider.Close()
	tracker := detection.NewTracker(provider)

	engine, err := plateocr.NewTesseractEngine(*ocrLang)
	if err != nil {
		return err
	}
	defer engine.Close()
	ocr := plateocr.NewPipeline(engine, log)

	challans := challan.NewEngine(db, mediaStore, ocr, document.BuildChallanPDF, log)

	cfg := detection.Config{ImageSize: *imageSize, ConfidenceThreshold: *confidence}

	switch {
	case *videoPath != "":
		videoID, err := createVideoRecord(db, *videoPath)
		if err != nil {
			return err
		}
		job := &pipeline.VideoJob{
			DB: db, Media: mediaStore, Detector: tracker, OCR: ocr, Challans: challans,
			DetectCfg: cfg, FrameSkip: *frameSkip, Workers: *workers, Log: log,
		}
		if err := job.Run(videoID); err != nil {
			return err
		}
		return summarizeViolations(db, log, videoID, "")

	case *photoPath != "":
		photoID, err := createPhotoRecord(db, *photoPath)
		if err != nil {
			return err
		}
		job := &pipeline.PhotoJob{
			DB: db, Media: mediaStore, Detector: provider, OCR: ocr, Challans: challans,
			DetectCfg: cfg, Workers: *workers, Log: log,
		}
		if err := job.Run(photoID); err != nil {
			return err
		}
		return summarizeViolations(db, log, "", photoID)

	default:
		// Scanned videos get a record too, so their violations reference
		// the source footage like full tracking runs do.
		videoID, err := createVideoRecord(db, *scanPath)
		if err != nil {
			return err
		}
		if err := db.SetVideoStatus(videoID, storage.StatusProcessing); err != nil {
			return err
		}
		job := &pipeline.PhotoJob{
			DB: db, Media: mediaStore, Detector: provider, OCR: ocr, Challans: challans,
			DetectCfg: cfg, Workers: *workers, Log: log,
		}
		n, err := job.ScanVideoFrames(*scanPath, *userID, videoID, *interval)
		if err != nil {
			if serr := db.SetVideoStatus(videoID, storage.StatusFailed); serr != nil {
				log.Error().Err(serr).Msg("failed to mark video failed")
			}
			return err
		}
		if err := db.FinishVideo(videoID, "", n, 0); err != nil {
			return err
		}
		log.Info().Int("violations", n).Msg("scan complete")
		return summarizeViolations(db, log, videoID, "")
	}
}

// summarizeViolations logs each violation recorded for the finished job.
func summarizeViolations(db *storage.DB, log zerolog.Logger, videoID, photoID string) error {
	recorded, err := db.ViolationsBySubject(videoID, photoID, 0)
	if err != nil {
		return err
	}
	for _, v := range recorded {
		ev := log.Info().Str("type", v.ViolationType).Float64("timestamp", v.Timestamp)
		if v.Speed != nil {
			ev = ev.Float64("speed", *v.Speed)
		}
		if v.PlateNumber != "" {
			ev = ev.Str("plate", v.PlateNumber)
		}
		if v.ChallanNumber != "" {
			ev = ev.Str("challan", v.ChallanNumber)
		}
		ev.Msg("violation recorded")
	}
	return nil
}

// createVideoRecord registers the input file as a pending video job.
func createVideoRecord(db *storage.DB, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	v := &storage.Video{
		ID:           uuid.NewString(),
		UserID:       *userID,
		Filename:     filepath.Base(abs),
		OriginalPath: abs,
	}
	if err := db.CreateVideo(v); err != nil {
		return "", err
	}
	return v.ID, nil
}

// createPhotoRecord registers the input file as a pending photo job,
// reading it once to capture dimensions.
func createPhotoRecord(db *storage.DB, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	img := gocv.IMRead(abs, gocv.IMReadColor)
	if img.Empty() {
		return "", fmt.Errorf("failed to read photo %s", abs)
	}
	defer img.Close()

	p := &storage.Photo{
		ID:           uuid.NewString(),
		UserID:       *userID,
		Filename:     filepath.Base(abs),
		OriginalPath: abs,
		Status:       storage.StatusPending,
		Width:        img.Cols(),
		Height:       img.Rows(),
	}
	if err := db.CreatePhoto(p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// storeCalibration parses -calibrate x1,y1,x2,y2 and persists it with the
// reference distance and optional speed limit.
func storeCalibration(db *storage.DB, log zerolog.Logger) error {
	parts := strings.Split(*calibrate, ",")
	if len(parts) != 4 {
		return fmt.Errorf("calibration must be x1,y1,x2,y2, got %q", *calibrate)
	}
	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("bad calibration coordinate %q: %w", p, err)
		}
		coords[i] = v
	}
	if *distance <= 0 {
		return fmt.Errorf("calibration requires -distance > 0 meters")
	}

	rec := &storage.CalibrationRecord{
		ID:                uuid.NewString(),
		UserID:            *userID,
		Name:              fmt.Sprintf("cli-%s", time.Now().Format("20060102-150405")),
		ReferenceDistance: *distance,
		PixelPoints: fmt.Sprintf("[[%g,%g],[%g,%g]]",
			coords[0], coords[1], coords[2], coords[3]),
		SpeedLimit: *limit,
	}
	if err := db.CreateCalibration(rec); err != nil {
		return err
	}
	log.Info().Str("user", *userID).Float64("distance_m", *distance).
		Float64("speed_limit", *limit).Msg("calibration stored")
	return nil
}

// printChallans writes a summary table of issued challans to stdout.
func printChallans(db *storage.DB) error {
	challans, err := db.ListChallans(100)
	if err != nil {
		return err
	}
	if len(challans) == 0 {
		fmt.Println("no challans issued")
		return nil
	}
	fmt.Printf("%-14s %-15s %-12s %8s  %s\n", "NUMBER", "TYPE", "PLATE", "FINE", "CREATED")
	for _, c := range challans {
		plate := c.PlateNumber
		if plate == "" {
			plate = "-"
		}
		fmt.Printf("%-14s %-15s %-12s %8.0f  %s\n",
			c.ChallanNumber, c.ViolationType, plate, c.FineAmount,
			c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// printChallanDetail writes every field of one challan to stdout.
func printChallanDetail(db *storage.DB, id string) error {
	c, err := db.GetChallan(id)
	if err != nil {
		return err
	}
	plate := c.PlateNumber
	if plate == "" {
		plate = "UNREADABLE"
	}
	fmt.Printf("Challan:    %s\n", c.ChallanNumber)
	fmt.Printf("Violation:  %s (%s)\n", c.ViolationType, c.ViolationID)
	fmt.Printf("User:       %s\n", c.UserID)
	fmt.Printf("Plate:      %s\n", plate)
	fmt.Printf("Fine:       %.0f\n", c.FineAmount)
	fmt.Printf("Created:    %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	if c.ImagePath != "" {
		fmt.Printf("Evidence:   %s\n", c.ImagePath)
	}
	if c.PDFPath != "" {
		fmt.Printf("Document:   %s\n", c.PDFPath)
	}
	if c.Notes != "" {
		fmt.Printf("Notes:      %s\n", c.Notes)
	}
	return nil
}
