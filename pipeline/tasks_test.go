package pipeline

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"roadcam/challan"
	"roadcam/detection"
	"roadcam/media"
	"roadcam/plateocr"
	"roadcam/storage"
	"roadcam/violations"
)

func testPipelineEnv(t *testing.T) (*storage.DB, *media.Store, *challan.Engine) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.NewDB(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := media.NewStore(filepath.Join(dir, "media"))
	require.NoError(t, err)
	return db, store, challan.NewEngine(db, store, nil, nil, zerolog.Nop())
}

func seedTaskViolation(t *testing.T, db *storage.DB, vtype violations.Type) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.InsertViolation(&storage.Violation{
		ID:            id,
		UserID:        "user-1",
		ViolationType: string(vtype),
		Confidence:    0.9,
		BBox:          "[10,10,50,50]",
	}))
	return id
}

// fixedTextEngine answers every extraction attempt with the same text.
type fixedTextEngine struct {
	text string
	conf float64
}

func (f *fixedTextEngine) Recognize(imagePNG []byte, att plateocr.Attempt) (plateocr.Result, error) {
	return plateocr.Result{Text: f.text, MeanConfidence: f.conf}, nil
}

func (f *fixedTextEngine) Close() error { return nil }

// fixedProvider returns the same detections for every frame.
type fixedProvider struct {
	dets []detection.Detection
}

func (f *fixedProvider) Detect(frame gocv.Mat, cfg detection.Config) ([]detection.Detection, error) {
	out := make([]detection.Detection, len(f.dets))
	copy(out, f.dets)
	return out, nil
}

func (f *fixedProvider) Close() error { return nil }

func taskDet(t *testing.T, class string, box image.Rectangle) detection.Detection {
	t.Helper()
	d, err := detection.NewDetection(class, box, 0.9)
	require.NoError(t, err)
	return d
}

func TestCitationTaskWithoutCrops(t *testing.T) {
	// No plate was associated and the evidence snapshot failed: both crops
	// stay at their zero value. The task must still complete and cite.
	db, store, engine := testPipelineEnv(t)
	violationID := seedTaskViolation(t, db, violations.NoHelmet)

	task := &CitationTask{
		DB:              db,
		Media:           store,
		Challans:        engine,
		Log:             zerolog.Nop(),
		ViolationID:     violationID,
		UserID:          "user-1",
		Type:            violations.NoHelmet,
		SavePhotoRecord: true,
	}
	require.NoError(t, task.Run())

	c, err := db.ChallanByViolation(violationID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.PlateNumber)
	assert.Empty(t, c.ImagePath)

	v, err := db.GetViolation(violationID)
	require.NoError(t, err)
	assert.Empty(t, v.ImagePath)
}

func TestCitationTaskWithCrops(t *testing.T) {
	db, store, engine := testPipelineEnv(t)
	violationID := seedTaskViolation(t, db, violations.Overspeeding)

	ocrEngine := &fixedTextEngine{text: "DL3CA9012", conf: 95}
	ocr := plateocr.NewPipeline(ocrEngine, zerolog.Nop())

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 400, 600, gocv.MatTypeCV8UC3)
	defer frame.Close()
	plateCrop, ok := media.SnapshotRegion(frame, image.Rect(100, 200, 280, 260))
	require.True(t, ok)
	evidenceCrop, ok := media.SnapshotRegion(frame, image.Rect(50, 50, 350, 380))
	require.True(t, ok)

	task := &CitationTask{
		DB:              db,
		Media:           store,
		OCR:             ocr,
		Challans:        engine,
		Log:             zerolog.Nop(),
		ViolationID:     violationID,
		UserID:          "user-1",
		Type:            violations.Overspeeding,
		PlateDetected:   true,
		PlateCrop:       plateCrop,
		EvidenceCrop:    evidenceCrop,
		SavePhotoRecord: true,
	}
	require.NoError(t, task.Run())

	c, err := db.ChallanByViolation(violationID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "DL3CA9012", c.PlateNumber)
	assert.True(t, c.PlateReadable)
	assert.False(t, c.Preset)
	assert.NotEmpty(t, c.ImagePath)

	v, err := db.GetViolation(violationID)
	require.NoError(t, err)
	assert.Equal(t, "DL3CA9012", v.PlateNumber)
	assert.NotEmpty(t, v.ImagePath)
}

func TestCitationTaskSkipsNonChargeable(t *testing.T) {
	db, store, engine := testPipelineEnv(t)
	violationID := seedTaskViolation(t, db, violations.CellPhone)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 200, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()
	evidenceCrop, ok := media.SnapshotRegion(frame, image.Rect(10, 10, 150, 150))
	require.True(t, ok)

	task := &CitationTask{
		DB:           db,
		Media:        store,
		Challans:     engine,
		Log:          zerolog.Nop(),
		ViolationID:  violationID,
		UserID:       "user-1",
		Type:         violations.CellPhone,
		EvidenceCrop: evidenceCrop,
	}
	require.NoError(t, task.Run())

	c, err := db.ChallanByViolation(violationID)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestProcessTransientFrameLinksViolationsToVideo(t *testing.T) {
	db, store, engine := testPipelineEnv(t)

	videoID := uuid.NewString()
	require.NoError(t, db.CreateVideo(&storage.Video{
		ID:           videoID,
		UserID:       "user-1",
		Filename:     "junction.mp4",
		OriginalPath: "/tmp/junction.mp4",
	}))

	provider := &fixedProvider{dets: []detection.Detection{
		taskDet(t, "motorcycle", image.Rect(200, 200, 400, 400)),
		taskDet(t, "no_helmet", image.Rect(250, 120, 350, 220)),
	}}
	job := &PhotoJob{
		DB: db, Media: store, Detector: provider, Challans: engine,
		DetectCfg: detection.DefaultConfig(), Workers: 2, Log: zerolog.Nop(),
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(90, 90, 90, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	n, err := job.ProcessTransientFrame(frame, "user-1", videoID, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recorded, err := db.ViolationsBySubject(videoID, "", 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, videoID, recorded[0].VideoID)
	assert.Equal(t, string(violations.NoHelmet), recorded[0].ViolationType)
	assert.Equal(t, 2.0, recorded[0].Timestamp)

	c, err := db.ChallanByViolation(recorded[0].ID)
	require.NoError(t, err)
	require.NotNil(t, c)
}
