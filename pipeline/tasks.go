package pipeline

import (
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roadcam/challan"
	"roadcam/media"
	"roadcam/plateocr"
	"roadcam/storage"
	"roadcam/violations"
)

// CitationTask is the deferred work for one persisted violation: plate OCR,
// evidence image persistence, citation creation and document generation.
// It carries only immutable snapshots (ids, cloned crops) so it can run
// concurrently with subsequent frame processing; the violation record it
// references was persisted before the task was submitted.
type CitationTask struct {
	DB       *storage.DB
	Media    *media.Store
	OCR      *plateocr.Pipeline
	Challans *challan.Engine
	Log      zerolog.Logger

	ViolationID   string
	UserID        string
	Type          violations.Type
	PlateDetected bool

	// PlateCrop is a cloned crop of the plate region, the zero RawFrame
	// when no plate-like detection was associated.
	PlateCrop media.RawFrame
	// EvidenceCrop is a cloned crop around the subject, the zero RawFrame
	// when the snapshot failed.
	EvidenceCrop media.RawFrame
	// SavePhotoRecord additionally stores the evidence crop as a photo
	// record linked to the violation (video mode).
	SavePhotoRecord bool
}

// Name implements Task.
func (t *CitationTask) Name() string {
	return fmt.Sprintf("citation %s %s", t.Type, t.ViolationID)
}

// Run implements Task.
func (t *CitationTask) Run() error {
	plateText := t.extractPlate()

	if t.SavePhotoRecord {
		t.saveEvidencePhoto()
	}

	if !violations.Chargeable(t.Type) {
		t.EvidenceCrop.Close()
		return nil
	}

	// The engine takes ownership of the evidence crop.
	var payload media.ImagePayload
	if t.EvidenceCrop.Present() {
		payload = t.EvidenceCrop
	}
	return t.Challans.Create(challan.Request{
		ViolationID:   t.ViolationID,
		UserID:        t.UserID,
		Type:          t.Type,
		PlateText:     plateText,
		PlateDetected: t.PlateDetected,
		Image:         payload,
	})
}

// extractPlate runs OCR over the plate crop snapshot, if any.
func (t *CitationTask) extractPlate() string {
	defer t.PlateCrop.Close()
	if t.OCR == nil || !t.PlateCrop.Present() {
		return ""
	}
	crop := t.PlateCrop.Mat
	text, ok := t.OCR.ExtractFromFrame(crop, image.Rect(0, 0, crop.Cols(), crop.Rows()))
	if !ok {
		return ""
	}
	return text
}

// saveEvidencePhoto stores the evidence crop as a photo record and links it
// to the violation. Failures are logged, never fatal.
func (t *CitationTask) saveEvidencePhoto() {
	if !t.EvidenceCrop.Present() {
		return
	}
	photoID := uuid.NewString()
	path, err := t.Media.SaveImage(fmt.Sprintf("photos/%s.jpg", photoID), t.EvidenceCrop)
	if err != nil {
		t.Log.Error().Err(err).Str("violation", t.ViolationID).Msg("failed to save violation photo")
		return
	}
	photo := &storage.Photo{
		ID:            photoID,
		UserID:        t.UserID,
		Filename:      photoID + ".jpg",
		OriginalPath:  path,
		ProcessedPath: path,
		Status:        storage.StatusCompleted,
		Width:         t.EvidenceCrop.Mat.Cols(),
		Height:        t.EvidenceCrop.Mat.Rows(),
	}
	if err := t.DB.CreatePhoto(photo); err != nil {
		t.Log.Error().Err(err).Str("violation", t.ViolationID).Msg("failed to insert violation photo record")
		return
	}
	if err := t.DB.SetViolationImage(t.ViolationID, path); err != nil {
		t.Log.Error().Err(err).Str("violation", t.ViolationID).Msg("failed to link violation photo")
	}
}
