package plateocr

import (
	"image"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	// plateWhitelist restricts extraction to characters a plate can carry.
	plateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789- "

	// earlyExitConfidence is the mean confidence above which a grammar-valid
	// candidate is returned without trying the remaining combinations.
	earlyExitConfidence = 70

	// grammarBonus is added to a candidate's score when the cleaned text
	// matches the plate grammar.
	grammarBonus = 20

	// targetWidth is the minimum crop width fed to the OCR engine; narrower
	// crops are upsampled because they degrade character segmentation.
	targetWidth = 400
)

// MaxAttempts is the bounded worst case for one extraction: every
// preprocessing variant crossed with both page-segmentation modes under the
// whitelist, then the first two variants crossed with both modes without it.
const MaxAttempts = 3*2 + 2*2

// Pipeline extracts license-plate text from frame crops via multi-strategy
// preprocessing and confidence-scored candidate selection.
type Pipeline struct {
	engine Engine
	log    zerolog.Logger
}

// NewPipeline wires the OCR pipeline to an extraction engine.
func NewPipeline(engine Engine, log zerolog.Logger) *Pipeline {
	return &Pipeline{engine: engine, log: log.With().Str("component", "plateocr").Logger()}
}

// ExtractFromFrame crops the box out of the frame (clamped to frame bounds)
// and runs the extraction pipeline. Returns the cleaned plate text, or false
// when no qualifying candidate was found.
func (p *Pipeline) ExtractFromFrame(frame gocv.Mat, box image.Rectangle) (string, bool) {
	if frame.Empty() {
		return "", false
	}
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	box = box.Intersect(bounds)
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return "", false
	}
	crop := frame.Region(box)
	defer crop.Close()
	return p.extract(crop)
}

// ReadFromFile runs plate extraction against a saved image when no plate
// text was recovered in memory. Plates in rear views sit near the lower
// middle of the crop, so a central-bottom region is tried before the whole
// image.
func (p *Pipeline) ReadFromFile(path string) (string, bool) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return "", false
	}
	defer img.Close()

	w := img.Cols()
	h := img.Rows()
	region := image.Rect(int(0.2*float64(w)), int(0.4*float64(h)), int(0.8*float64(w)), int(0.95*float64(h)))
	if text, ok := p.ExtractFromFrame(img, region); ok {
		return text, true
	}
	return p.ExtractFromFrame(img, image.Rect(0, 0, w, h))
}

// candidate is one scored extraction outcome.
type candidate struct {
	text  string
	score float64
}

// extract runs the preprocessing x PSM x whitelist attempt matrix over a
// plate crop. Whitelist attempts run first (faster and usually more
// accurate); unrestricted attempts only run when no whitelist candidate
// qualified. Errors in any single attempt are non-fatal.
func (p *Pipeline) extract(crop gocv.Mat) (string, bool) {
	images := p.preprocess(crop)
	if len(images) == 0 {
		return "", false
	}

	psms := []PSM{PSMUniformBlock, PSMSingleLine}

	var best candidate
	attempts := 0

	scoreAttempt := func(png []byte, att Attempt) (string, bool) {
		attempts++
		res, err := p.engine.Recognize(png, att)
		if err != nil {
			p.log.Debug().Err(err).Int("attempt", attempts).Msg("OCR attempt failed")
			return "", false
		}
		cleaned, ok := CleanText(res.Text)
		if !ok {
			return "", false
		}
		valid := ValidPlate(cleaned)
		if valid && res.MeanConfidence >= earlyExitConfidence {
			p.log.Info().Str("plate", cleaned).Float64("confidence", res.MeanConfidence).
				Int("attempts", attempts).Msg("OCR early exit")
			return cleaned, true
		}
		score := res.MeanConfidence
		if valid {
			score += grammarBonus
		}
		if score > best.score || best.text == "" {
			best = candidate{text: cleaned, score: score}
		}
		return "", false
	}

	for _, png := range images {
		for _, psm := range psms {
			if text, done := scoreAttempt(png, Attempt{PSM: psm, Whitelist: plateWhitelist}); done {
				return text, true
			}
		}
	}

	if best.text == "" {
		// Unrestricted fallback over the two fastest preprocessing variants.
		fallback := images
		if len(fallback) > 2 {
			fallback = fallback[:2]
		}
		for _, png := range fallback {
			for _, psm := range psms {
				if text, done := scoreAttempt(png, Attempt{PSM: psm}); done {
					return text, true
				}
			}
		}
	}

	if best.text == "" {
		p.log.Debug().Int("attempts", attempts).Msg("OCR found no qualifying plate candidate")
		return "", false
	}
	p.log.Info().Str("plate", best.text).Float64("score", best.score).
		Int("attempts", attempts).Msg("OCR selected best candidate")
	return best.text, true
}

// preprocess builds the candidate images for the attempt matrix, each PNG
// encoded once: global Otsu threshold, bilateral denoise plus adaptive
// Gaussian threshold, and CLAHE contrast enhancement plus Otsu.
func (p *Pipeline) preprocess(crop gocv.Mat) [][]byte {
	gray := gocv.NewMat()
	defer gray.Close()
	if crop.Channels() > 1 {
		gocv.CvtColor(crop, &gray, gocv.ColorBGRToGray)
	} else {
		crop.CopyTo(&gray)
	}

	if gray.Cols() > 0 && gray.Cols() < targetWidth {
		scale := float64(targetWidth) / float64(gray.Cols())
		resized := gocv.NewMat()
		gocv.Resize(gray, &resized, image.Point{}, scale, scale, gocv.InterpolationCubic)
		resized.CopyTo(&gray)
		resized.Close()
	}

	var out [][]byte

	encode := func(m gocv.Mat) {
		buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
		if err != nil {
			p.log.Debug().Err(err).Msg("failed to encode preprocessed image")
			return
		}
		png := make([]byte, len(buf.GetBytes()))
		copy(png, buf.GetBytes())
		buf.Close()
		out = append(out, png)
	}

	otsu := gocv.NewMat()
	gocv.Threshold(gray, &otsu, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	encode(otsu)
	otsu.Close()

	denoised := gocv.NewMat()
	gocv.BilateralFilter(gray, &denoised, 9, 75, 75)
	adaptive := gocv.NewMat()
	gocv.AdaptiveThreshold(denoised, &adaptive, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 31, 5)
	encode(adaptive)
	adaptive.Close()
	denoised.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	clahe.Close()
	contrastOtsu := gocv.NewMat()
	gocv.Threshold(enhanced, &contrastOtsu, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
	encode(contrastOtsu)
	contrastOtsu.Close()
	enhanced.Close()

	return out
}
