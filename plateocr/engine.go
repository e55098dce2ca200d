package plateocr

import (
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// PSM selects the page-segmentation assumption for one extraction attempt.
type PSM int

const (
	// PSMUniformBlock treats the image as a single uniform block of text.
	// Works best on most rear plate crops.
	PSMUniformBlock PSM = iota
	// PSMSingleLine treats the image as one text line.
	PSMSingleLine
)

// Attempt is one text-extraction configuration. An empty Whitelist leaves
// the character set unrestricted.
type Attempt struct {
	PSM       PSM
	Whitelist string
}

// Result is the outcome of one extraction attempt. MeanConfidence is the
// average per-word recognition confidence on a 0-100 scale.
type Result struct {
	Text           string
	MeanConfidence float64
}

// Engine abstracts the text-extraction backend so the pipeline's attempt
// ordering and scoring can be exercised without a Tesseract install.
type Engine interface {
	Recognize(imagePNG []byte, att Attempt) (Result, error)
	Close() error
}

// TesseractEngine runs extraction attempts through a gosseract client.
type TesseractEngine struct {
	client *gosseract.Client
	mu     sync.Mutex
}

// NewTesseractEngine creates an engine bound to the given language model.
func NewTesseractEngine(language string) (*TesseractEngine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	return &TesseractEngine{client: client}, nil
}

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(imagePNG []byte, att Attempt) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	psm := gosseract.PSM_SINGLE_BLOCK
	if att.PSM == PSMSingleLine {
		psm = gosseract.PSM_SINGLE_LINE
	}
	if err := e.client.SetPageSegMode(psm); err != nil {
		return Result{}, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := e.client.SetWhitelist(att.Whitelist); err != nil {
		return Result{}, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(imagePNG); err != nil {
		return Result{}, fmt.Errorf("failed to set OCR image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return Result{}, fmt.Errorf("failed to extract text: %w", err)
	}

	// Per-word confidences; tolerate box retrieval failing on odd inputs.
	var total float64
	var words int
	if boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		for _, box := range boxes {
			if box.Confidence > 0 {
				total += box.Confidence
				words++
			}
		}
	}
	var mean float64
	if words > 0 {
		mean = total / float64(words)
	}

	return Result{Text: text, MeanConfidence: mean}, nil
}

// Close releases the underlying Tesseract client.
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}
