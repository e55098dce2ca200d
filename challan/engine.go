package challan

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roadcam/media"
	"roadcam/storage"
	"roadcam/violations"
)

// Challan notes attached for the two plate-recovery outcomes.
const (
	notePresetChallan = "Number plate detected but OCR unreadable; issued preset challan."
	noteRetrySuccess  = "Number plate successfully extracted on retry."
)

// PlateReader retries plate extraction against a persisted image. Implemented
// by the OCR pipeline; nil disables the retry.
type PlateReader interface {
	ReadFromFile(path string) (string, bool)
}

// DocumentBuilder renders the printable form of a challan.
type DocumentBuilder func(c *storage.Challan, v *storage.Violation) ([]byte, error)

// Engine issues citations for persisted violations. Creation is append-only
// and idempotent per violation id; document generation is a deferred
// best-effort side effect that never rolls back the citation.
type Engine struct {
	db       *storage.DB
	media    *media.Store
	plates   PlateReader
	buildDoc DocumentBuilder
	log      zerolog.Logger
}

// NewEngine wires the citation engine to its collaborators. plates and
// buildDoc may be nil to disable OCR retry and document generation.
func NewEngine(db *storage.DB, mediaStore *media.Store, plates PlateReader, buildDoc DocumentBuilder, log zerolog.Logger) *Engine {
	return &Engine{
		db:       db,
		media:    mediaStore,
		plates:   plates,
		buildDoc: buildDoc,
		log:      log.With().Str("component", "challan").Logger(),
	}
}

// Request is the immutable snapshot a citation is created from. Image, when
// present, is owned by the request and released by Create.
type Request struct {
	ViolationID   string
	UserID        string
	Type          violations.Type
	PlateText     string
	PlateDetected bool
	Image         media.ImagePayload
}

// Create issues the citation for one violation. Calling it twice for the
// same violation id never produces two challan records: the second call is a
// no-op, or an update when it carries a plate number the first one lacked.
func (e *Engine) Create(req Request) error {
	if req.Image != nil {
		defer req.Image.Close()
	}

	existing, err := e.db.ChallanByViolation(req.ViolationID)
	if err != nil {
		return fmt.Errorf("failed to look up challan for violation %s: %w", req.ViolationID, err)
	}
	if existing != nil {
		if req.PlateText != "" && !existing.PlateReadable {
			if err := e.db.UpdateChallanPlate(existing.ID, req.PlateText, noteRetrySuccess); err != nil {
				return fmt.Errorf("failed to attach plate to challan %s: %w", existing.ID, err)
			}
		}
		return nil
	}

	c := &storage.Challan{
		ID:            uuid.NewString(),
		ViolationID:   req.ViolationID,
		UserID:        req.UserID,
		ChallanNumber: NewChallanNumber(),
		ViolationType: string(req.Type),
		FineAmount:    FineAmount(req.Type),
	}

	plateText := req.PlateText
	switch {
	case plateText != "":
		c.PlateNumber = plateText
		c.PlateReadable = true
	case req.PlateDetected:
		// Plate region seen but unreadable: reduced-confidence citation, not
		// a failure.
		c.Preset = true
		c.Notes = notePresetChallan
	}

	if req.Image != nil {
		path, err := e.media.SaveImage(fmt.Sprintf("challans/%s.jpg", c.ChallanNumber), req.Image)
		if err != nil {
			e.log.Error().Err(err).Str("challan", c.ChallanNumber).Msg("failed to save detected image")
		} else {
			c.ImagePath = path
		}
	}

	// The saved file may OCR better than the in-memory crop (different
	// encode path), so try once more before finalizing the record.
	if plateText == "" && req.PlateDetected && c.ImagePath != "" && e.plates != nil {
		if retry, ok := e.plates.ReadFromFile(c.ImagePath); ok {
			e.log.Info().Str("plate", retry).Str("challan", c.ChallanNumber).Msg("OCR retry on saved image succeeded")
			plateText = retry
			c.PlateNumber = retry
			c.PlateReadable = true
			c.Preset = false
			c.Notes = noteRetrySuccess
		}
	}

	created, err := e.db.InsertChallan(c)
	if err != nil {
		return fmt.Errorf("failed to insert challan: %w", err)
	}
	if !created {
		// A concurrent task for the same violation won the insert.
		return nil
	}

	e.generateDocument(c)

	readable := plateText != ""
	if err := e.db.AttachViolationPlate(req.ViolationID, plateText, readable, c.ChallanNumber, c.ImagePath); err != nil {
		e.log.Error().Err(err).Str("violation", req.ViolationID).Msg("failed to update violation with challan reference")
	}

	e.log.Info().
		Str("challan", c.ChallanNumber).
		Str("violation", req.ViolationID).
		Str("type", string(req.Type)).
		Float64("fine", c.FineAmount).
		Bool("plate_readable", readable).
		Msg("challan created")
	return nil
}

// generateDocument renders and persists the printable challan. Failures are
// logged and never propagate.
func (e *Engine) generateDocument(c *storage.Challan) {
	if e.buildDoc == nil {
		return
	}
	v, err := e.db.GetViolation(c.ViolationID)
	if err != nil {
		e.log.Warn().Err(err).Str("challan", c.ChallanNumber).Msg("skipping document, violation lookup failed")
		v = nil
	}
	data, err := e.buildDoc(c, v)
	if err != nil {
		e.log.Error().Err(err).Str("challan", c.ChallanNumber).Msg("failed to build challan document")
		return
	}
	path, err := e.media.SaveDocument(fmt.Sprintf("challans/%s.pdf", c.ChallanNumber), data)
	if err != nil {
		e.log.Error().Err(err).Str("challan", c.ChallanNumber).Msg("failed to persist challan document")
		return
	}
	c.PDFPath = path
	if err := e.db.SetChallanPDF(c.ID, path); err != nil {
		e.log.Error().Err(err).Str("challan", c.ChallanNumber).Msg("failed to record challan document path")
	}
}

// NewChallanNumber generates a display challan number like CHAL-3F2A910B.
func NewChallanNumber() string {
	return "CHAL-" + strings.ToUpper(uuid.NewString()[:8])
}
