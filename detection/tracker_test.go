package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// scriptedProvider replays a fixed sequence of detection frames.
type scriptedProvider struct {
	frames [][]Detection
	call   int
}

func (s *scriptedProvider) Detect(frame gocv.Mat, cfg Config) ([]Detection, error) {
	if s.call >= len(s.frames) {
		return nil, nil
	}
	dets := make([]Detection, len(s.frames[s.call]))
	copy(dets, s.frames[s.call])
	s.call++
	return dets, nil
}

func (s *scriptedProvider) Close() error { return nil }

func mustDet(t *testing.T, class string, x, y, w, h int) Detection {
	t.Helper()
	d, err := NewDetection(class, image.Rect(x, y, x+w, y+h), 0.9)
	require.NoError(t, err)
	return d
}

func TestTrackerCarriesIdentityAcrossFrames(t *testing.T) {
	provider := &scriptedProvider{frames: [][]Detection{
		{mustDet(t, "motorcycle", 100, 100, 80, 80)},
		{mustDet(t, "motorcycle", 110, 105, 80, 80)},
		{mustDet(t, "motorcycle", 122, 111, 80, 80)},
	}}
	tracker := NewTracker(provider)
	frame := gocv.NewMat()
	defer frame.Close()

	var ids []int
	for i := 0; i < 3; i++ {
		dets, err := tracker.Track(frame, DefaultConfig(), true)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		ids = append(ids, dets[0].TrackID)
	}
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
	assert.Greater(t, ids[0], 0)
}

func TestTrackerSeparatesClasses(t *testing.T) {
	// Same box, different class: never associated.
	provider := &scriptedProvider{frames: [][]Detection{
		{mustDet(t, "motorcycle", 100, 100, 80, 80)},
		{mustDet(t, "car", 100, 100, 80, 80)},
	}}
	tracker := NewTracker(provider)
	frame := gocv.NewMat()
	defer frame.Close()

	first, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)
	second, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].TrackID, second[0].TrackID)
}

func TestTrackerDistantBoxStartsNewTrack(t *testing.T) {
	provider := &scriptedProvider{frames: [][]Detection{
		{mustDet(t, "motorcycle", 100, 100, 80, 80)},
		{mustDet(t, "motorcycle", 500, 500, 80, 80)},
	}}
	tracker := NewTracker(provider)
	frame := gocv.NewMat()
	defer frame.Close()

	first, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)
	second, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].TrackID, second[0].TrackID)
}

func TestTrackerDoesNotAgeTrackOnBirthFrame(t *testing.T) {
	// A track created this call must get the full miss allowance: after
	// exactly maxMissedFrames unmatched calls the identity still survives.
	frames := [][]Detection{{mustDet(t, "motorcycle", 100, 100, 80, 80)}}
	for i := 0; i < maxMissedFrames; i++ {
		frames = append(frames, nil)
	}
	frames = append(frames, []Detection{mustDet(t, "motorcycle", 100, 100, 80, 80)})

	provider := &scriptedProvider{frames: frames}
	tracker := NewTracker(provider)
	frame := gocv.NewMat()
	defer frame.Close()

	first, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)
	require.Len(t, first, 1)

	for i := 0; i < maxMissedFrames; i++ {
		_, err := tracker.Track(frame, DefaultConfig(), true)
		require.NoError(t, err)
	}

	last, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, first[0].TrackID, last[0].TrackID)
}

func TestTrackerResetWithoutPersist(t *testing.T) {
	provider := &scriptedProvider{frames: [][]Detection{
		{mustDet(t, "motorcycle", 100, 100, 80, 80)},
		{mustDet(t, "motorcycle", 100, 100, 80, 80)},
	}}
	tracker := NewTracker(provider)
	frame := gocv.NewMat()
	defer frame.Close()

	first, err := tracker.Track(frame, DefaultConfig(), true)
	require.NoError(t, err)
	second, err := tracker.Track(frame, DefaultConfig(), false)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].TrackID, second[0].TrackID)
}

func TestBoxIoU(t *testing.T) {
	t.Run("identical boxes", func(t *testing.T) {
		b := image.Rect(0, 0, 10, 10)
		assert.InDelta(t, 1.0, BoxIoU(b, b), 1e-9)
	})

	t.Run("half overlap", func(t *testing.T) {
		a := image.Rect(0, 0, 10, 10)
		b := image.Rect(5, 0, 15, 10)
		// intersection 50, union 150.
		assert.InDelta(t, 1.0/3.0, BoxIoU(a, b), 1e-9)
	})

	t.Run("disjoint boxes", func(t *testing.T) {
		assert.Equal(t, 0.0, BoxIoU(image.Rect(0, 0, 10, 10), image.Rect(20, 20, 30, 30)))
	})
}

func TestCenterDistance(t *testing.T) {
	a := mustDet(t, "motorcycle", 0, 0, 100, 100) // center (50,50)
	b := mustDet(t, "motorcycle", 30, 90, 100, 100)
	// center (80,130): dx 30, dy 80.
	assert.InDelta(t, 85.44003745317531, CenterDistance(a, b), 1e-9)
}
