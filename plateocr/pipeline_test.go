package plateocr

import (
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// stubEngine returns a fixed result for every attempt and counts calls.
type stubEngine struct {
	result Result
	err    error
	calls  int
}

func (s *stubEngine) Recognize(imagePNG []byte, att Attempt) (Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubEngine) Close() error { return nil }

func testCrop(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 60, 180, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestExtractEarlyExit(t *testing.T) {
	engine := &stubEngine{result: Result{Text: "DL1AB1234", MeanConfidence: 95}}
	p := NewPipeline(engine, zerolog.Nop())

	crop := testCrop(t)
	text, ok := p.ExtractFromFrame(crop, image.Rect(0, 0, crop.Cols(), crop.Rows()))

	require.True(t, ok)
	assert.Equal(t, "DL1AB1234", text)
	// A grammar-valid high-confidence candidate stops the attempt matrix.
	assert.Equal(t, 1, engine.calls)
	assert.Less(t, engine.calls, MaxAttempts)
}

func TestExtractBestCandidateWithoutEarlyExit(t *testing.T) {
	engine := &stubEngine{result: Result{Text: "dl 1 ab 1234", MeanConfidence: 40}}
	p := NewPipeline(engine, zerolog.Nop())

	crop := testCrop(t)
	text, ok := p.ExtractFromFrame(crop, image.Rect(0, 0, crop.Cols(), crop.Rows()))

	require.True(t, ok)
	assert.Equal(t, "DL 1 AB 1234", text)
	// Low confidence runs the whole whitelist matrix; a qualifying candidate
	// skips the unrestricted fallback.
	assert.Equal(t, 6, engine.calls)
}

func TestExtractExhaustsAttemptsOnGarbage(t *testing.T) {
	engine := &stubEngine{result: Result{Text: "#!", MeanConfidence: 5}}
	p := NewPipeline(engine, zerolog.Nop())

	crop := testCrop(t)
	_, ok := p.ExtractFromFrame(crop, image.Rect(0, 0, crop.Cols(), crop.Rows()))

	assert.False(t, ok)
	assert.Equal(t, MaxAttempts, engine.calls)
}

func TestExtractFromFrameClampsBox(t *testing.T) {
	engine := &stubEngine{result: Result{Text: "DL1AB1234", MeanConfidence: 95}}
	p := NewPipeline(engine, zerolog.Nop())

	crop := testCrop(t)

	t.Run("box outside frame", func(t *testing.T) {
		_, ok := p.ExtractFromFrame(crop, image.Rect(1000, 1000, 1200, 1100))
		assert.False(t, ok)
		assert.Equal(t, 0, engine.calls)
	})

	t.Run("box partially outside is clamped", func(t *testing.T) {
		_, ok := p.ExtractFromFrame(crop, image.Rect(-50, -50, 100, 40))
		assert.True(t, ok)
	})
}

func TestExtractToleratesEngineErrors(t *testing.T) {
	engine := &stubEngine{err: assert.AnError}
	p := NewPipeline(engine, zerolog.Nop())

	crop := testCrop(t)
	_, ok := p.ExtractFromFrame(crop, image.Rect(0, 0, crop.Cols(), crop.Rows()))

	assert.False(t, ok)
	assert.Equal(t, MaxAttempts, engine.calls)
}
