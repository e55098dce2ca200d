package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreWindowEviction(t *testing.T) {
	s := NewStore()
	for i := 0; i < PositionWindowSize+10; i++ {
		s.Update(1, "motorcycle", Position{X: float64(i), FrameIndex: i})
	}

	window := s.Window(1)
	require.Len(t, window, PositionWindowSize)
	// Oldest entries were evicted; order is oldest first.
	assert.Equal(t, 10, window[0].FrameIndex)
	assert.Equal(t, PositionWindowSize+9, window[len(window)-1].FrameIndex)
}

func TestStoreWindowIsACopy(t *testing.T) {
	s := NewStore()
	s.Update(3, "car", Position{X: 1, FrameIndex: 0})

	window := s.Window(3)
	window[0].X = 999

	assert.Equal(t, 1.0, s.Window(3)[0].X)
}

func TestStoreRecordedGate(t *testing.T) {
	s := NewStore()
	s.Update(7, "motorcycle", Position{FrameIndex: 0})

	assert.False(t, s.HasRecorded(7, "no_helmet"))
	s.MarkRecorded(7, "no_helmet")
	assert.True(t, s.HasRecorded(7, "no_helmet"))

	// Other types and other tracks are unaffected.
	assert.False(t, s.HasRecorded(7, "overspeeding"))
	assert.False(t, s.HasRecorded(8, "no_helmet"))
}

func TestStoreUnknownTrack(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Window(42))
	assert.Equal(t, "", s.ClassLabel(42))
	assert.False(t, s.HasRecorded(42, "no_helmet"))
	assert.Equal(t, 0, s.Len())
}

func TestStoreClassLabelFollowsLatest(t *testing.T) {
	s := NewStore()
	s.Update(5, "car", Position{FrameIndex: 0})
	s.Update(5, "truck", Position{FrameIndex: 3})
	assert.Equal(t, "truck", s.ClassLabel(5))
}
