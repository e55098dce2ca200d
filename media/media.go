package media

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// ImagePayload is a tagged variant over the two image forms the pipeline
// moves around: a decoded pixel buffer or already-encoded file bytes. Each
// variant is handled explicitly at the persistence boundary.
type ImagePayload interface {
	isImagePayload()
	// Close releases any native resources the payload holds.
	Close()
}

// RawFrame is a decoded pixel buffer (a cloned Mat the payload owns). The
// zero value marks an absent frame: its Mat has no native storage behind it
// and must never be touched, so every method checks presence first.
type RawFrame struct {
	Mat     gocv.Mat
	present bool
}

// NewRawFrame wraps an initialized Mat as a payload.
func NewRawFrame(m gocv.Mat) RawFrame {
	return RawFrame{Mat: m, present: true}
}

func (RawFrame) isImagePayload() {}

// Present reports whether the payload carries pixel data.
func (r RawFrame) Present() bool {
	return r.present && !r.Mat.Empty()
}

// Close releases the owned Mat. Safe on the zero value.
func (r RawFrame) Close() {
	if !r.present {
		return
	}
	r.Mat.Close()
}

// EncodedBytes is an already-encoded image (JPEG/PNG file contents).
type EncodedBytes []byte

func (EncodedBytes) isImagePayload() {}

// Close is a no-op for encoded bytes.
func (EncodedBytes) Close() {}

// SnapshotRegion clones a clamped region of the frame into a payload the
// caller owns. Workers receive these snapshots instead of shared frame
// memory.
func SnapshotRegion(frame gocv.Mat, box image.Rectangle) (RawFrame, bool) {
	if frame.Empty() {
		return RawFrame{}, false
	}
	box = box.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return RawFrame{}, false
	}
	region := frame.Region(box)
	clone := region.Clone()
	region.Close()
	return NewRawFrame(clone), true
}

// Store writes pipeline artifacts (crops, annotated frames, documents)
// under a root directory by relative key. Backend selection beyond the local
// filesystem belongs to the storage collaborator, not this pipeline.
type Store struct {
	root string
}

// NewStore creates the artifact directories under root.
func NewStore(root string) (*Store, error) {
	for _, sub := range []string{"photos", "challans", "processed"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Path resolves a relative key to an absolute path under the store root.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, key)
}

// SaveImage persists an image payload under the given key and returns the
// resulting path. Each variant is written through its native route.
func (s *Store) SaveImage(key string, payload ImagePayload) (string, error) {
	path := s.Path(key)
	switch img := payload.(type) {
	case RawFrame:
		if !img.Present() {
			return "", fmt.Errorf("empty frame payload for %s", key)
		}
		if ok := gocv.IMWrite(path, img.Mat); !ok {
			return "", fmt.Errorf("failed to encode image to %s", path)
		}
	case EncodedBytes:
		if len(img) == 0 {
			return "", fmt.Errorf("empty byte payload for %s", key)
		}
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return "", fmt.Errorf("failed to write image: %w", err)
		}
	default:
		return "", fmt.Errorf("unhandled image payload %T", payload)
	}
	return path, nil
}

// SaveDocument persists generated document bytes (e.g. a challan PDF).
func (s *Store) SaveDocument(key string, data []byte) (string, error) {
	path := s.Path(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	return path, nil
}
