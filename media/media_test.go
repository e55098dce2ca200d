package media

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNewStoreCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "media")
	_, err := NewStore(root)
	require.NoError(t, err)

	for _, sub := range []string{"photos", "challans", "processed"} {
		info, err := os.Stat(filepath.Join(root, sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSaveImageEncodedBytes(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveImage("photos/a.jpg", EncodedBytes([]byte{0xff, 0xd8, 0xff, 0xd9}))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff, 0xd9}, data)
}

func TestSaveImageRejectsEmptyPayloads(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveImage("photos/a.jpg", EncodedBytes(nil))
	assert.Error(t, err)

	_, err = store.SaveImage("photos/b.jpg", RawFrame{})
	assert.Error(t, err)
}

func TestZeroRawFrameIsInert(t *testing.T) {
	// A zero RawFrame stands in for "no crop" throughout the pipeline. Its
	// Mat owns no native storage, so Close and Present must not touch it.
	var none RawFrame
	assert.False(t, none.Present())
	none.Close()
	none.Close()

	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 2, 3, 0), 8, 8, gocv.MatTypeCV8UC3)
	frame := NewRawFrame(m)
	assert.True(t, frame.Present())
	frame.Close()
}

func TestSaveImageRawFrame(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 40, 60, gocv.MatTypeCV8UC3)
	defer m.Close()

	path, err := store.SaveImage("photos/frame.jpg", NewRawFrame(m))
	require.NoError(t, err)

	back := gocv.IMRead(path, gocv.IMReadColor)
	defer back.Close()
	require.False(t, back.Empty())
	assert.Equal(t, 60, back.Cols())
	assert.Equal(t, 40, back.Rows())
}

func TestSaveDocument(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, err := store.SaveDocument("challans/CHAL-AA.pdf", []byte("%PDF-stub"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stub", string(data))
}

func TestSnapshotRegion(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 100, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()

	t.Run("interior region", func(t *testing.T) {
		snap, ok := SnapshotRegion(frame, image.Rect(10, 10, 60, 50))
		require.True(t, ok)
		defer snap.Close()
		assert.Equal(t, 50, snap.Mat.Cols())
		assert.Equal(t, 40, snap.Mat.Rows())
	})

	t.Run("region is clamped to the frame", func(t *testing.T) {
		snap, ok := SnapshotRegion(frame, image.Rect(-30, -30, 50, 50))
		require.True(t, ok)
		defer snap.Close()
		assert.Equal(t, 50, snap.Mat.Cols())
		assert.Equal(t, 50, snap.Mat.Rows())
	})

	t.Run("fully outside region fails", func(t *testing.T) {
		_, ok := SnapshotRegion(frame, image.Rect(500, 500, 600, 600))
		assert.False(t, ok)
	})

	t.Run("empty frame fails", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()
		_, ok := SnapshotRegion(empty, image.Rect(0, 0, 10, 10))
		assert.False(t, ok)
	})

	t.Run("snapshot is independent of the source", func(t *testing.T) {
		snap, ok := SnapshotRegion(frame, image.Rect(0, 0, 10, 10))
		require.True(t, ok)
		frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
		assert.Equal(t, uint8(128), snap.Mat.GetUCharAt(0, 0))
		snap.Close()

		// restore for other subtests
		frame.SetTo(gocv.NewScalar(128, 128, 128, 0))
	})
}
